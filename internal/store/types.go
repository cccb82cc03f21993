package store

// Outbox entry statuses. An entry is in exactly one status at a time.
const (
	StatusQueued  = "queued"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusDead    = "dead" // retry budget exhausted, surfaced to the user
)

// OutboxEntry represents a pending outgoing message. Payload holds the
// variant content (text, or an embeddable data URI for audio/image).
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	ChannelID    string
	Sender       string
	Kind         string
	Payload      string
	Status       string
	Attempts     int
	ErrorMessage string
	CreatedAt    int64
}
