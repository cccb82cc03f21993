package gateway

import "fmt"

// ConnectivityError marks a failure to reach the store: network errors,
// timeouts and 5xx responses. Callers recover by queueing, not by surfacing
// a fatal error.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: store unreachable: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// StoreRejection marks a write the backend refused (4xx). The message is not
// silently dropped; callers move it to the queue and tell the user.
type StoreRejection struct {
	Op     string
	Status int
	Body   string
}

func (e *StoreRejection) Error() string {
	return fmt.Sprintf("%s: store rejected request (HTTP %d): %s", e.Op, e.Status, e.Body)
}
