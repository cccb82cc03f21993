package chat

// Kind classifies a message by its populated payload variant.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	// KindUnsupported marks a record with no recognised payload variant.
	// Such records render as a placeholder; they are never an error.
	KindUnsupported Kind = "unsupported"
)

// Message is a record fetched from the realtime store. ID and Timestamp are
// assigned by the store on append; exactly one payload variant is populated
// on well-formed records. Messages are immutable once appended.
type Message struct {
	ID        string `json:"-"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text,omitempty"`
	Audio     string `json:"audio,omitempty"` // embeddable data URI (audio/wav)
	Image     string `json:"image,omitempty"` // embeddable data URI (image/png)
}

// Kind returns which payload variant the message carries. A record with
// no populated variant is a malformed or legacy record and classifies as
// KindUnsupported.
func (m *Message) Kind() Kind {
	switch {
	case m.Text != "":
		return KindText
	case m.Audio != "":
		return KindAudio
	case m.Image != "":
		return KindImage
	default:
		return KindUnsupported
	}
}

// Draft is an outbound message before the store has acknowledged it. The
// store assigns id and timestamp on the acknowledged write, so a draft
// carries neither.
type Draft struct {
	Sender string `json:"sender"`
	Text   string `json:"text,omitempty"`
	Audio  string `json:"audio,omitempty"`
	Image  string `json:"image,omitempty"`
}

// Kind returns which payload variant the draft carries.
func (d *Draft) Kind() Kind {
	m := Message{Text: d.Text, Audio: d.Audio, Image: d.Image}
	return m.Kind()
}

// Friend is a local contact: a peer identity plus the derived channel id.
// Friends exist only in the local store; there is no server-side roster.
type Friend struct {
	Identity  string
	ChannelID string
}
