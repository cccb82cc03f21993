package bus

import "time"

// Event kinds published on the bus. Subscribers filter by prefix, so
// related kinds share a namespace ("net.", "queue."). Per-channel traffic
// is not mirrored here: message windows and typing flags flow through the
// gateway subscription callbacks directly.
const (
	KindNetRestored = "net.restored"
	KindNetLost     = "net.lost"

	KindQueueEnqueued = "queue.enqueued"
	KindQueueDrained  = "queue.drained"
	KindQueueDead     = "queue.dead" // entry exhausted its retry budget

	KindStatusChanged = "status.changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
