package session

import (
	"fmt"
	"regexp"
)

// Session names become directory names under the state root, so the
// accepted alphabet is deliberately narrow.
var nameRe = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName rejects names that cannot safely serve as a per-session
// state directory: only lowercase letters, digits, underscore and hyphen
// are allowed, up to 64 characters.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid session name %q: want 1-64 of [a-z0-9_-]", name)
	}
	return nil
}
