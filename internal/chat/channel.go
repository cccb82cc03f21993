package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Separator joins the two identities in a channel id. Identities are
// validated to never contain it, so the mapping is unambiguous.
const Separator = "_"

var identityRegexp = regexp.MustCompile(`^[A-Z0-9]{1,32}$`)

// ChannelID derives the shared channel identifier for two identities.
// It is commutative: ChannelID(a, b) == ChannelID(b, a). Both participants
// compute the same id independently, so no negotiation is needed.
func ChannelID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + Separator + b
}

// ValidateIdentity checks that an identity conforms to the identity charset
// (uppercase alphanumeric, at most 32 chars, no separator).
func ValidateIdentity(id string) error {
	if !identityRegexp.MatchString(id) {
		return fmt.Errorf("invalid identity %q: must match ^[A-Z0-9]{1,32}$", id)
	}
	return nil
}

// NormalizeIdentity uppercases user input before validation, mirroring how
// identities are generated.
func NormalizeIdentity(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
