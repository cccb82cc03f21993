package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/tui/ui"
)

// ChatView displays the message window and a composer for a single channel.
type ChatView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	typing   *tview.TextView
	composer *tview.InputField
	peer     string
	self     string
	onSend   func(text string)
	onTyping func()
}

// NewChatView creates a new chat view.
func NewChatView(theme *ui.Theme) *ChatView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	typing := tview.NewTextView().
		SetDynamicColors(true)
	typing.SetBackgroundColor(theme.BgColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(typing, 1, 0, false).
		AddItem(composer, 3, 0, false)

	cv := &ChatView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		typing:   typing,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := composer.GetText()
		composer.SetText("")
		if text != "" && cv.onSend != nil {
			cv.onSend(text)
		}
	})

	composer.SetChangedFunc(func(text string) {
		if text != "" && cv.onTyping != nil {
			cv.onTyping()
		}
	})

	return cv
}

// Name implements Component.
func (cv *ChatView) Name() string {
	if cv.peer != "" {
		return cv.peer
	}
	return "Chat"
}

// Hints implements Component.
func (cv *ChatView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "r", Description: "Record audio"},
		{Key: "p", Description: "Send image"},
		{Key: "Esc", Description: "Back"},
		{Key: "?", Description: "Help"},
	}
}

// SetPeer updates the remote identity this view talks to.
func (cv *ChatView) SetPeer(peer, self string) {
	cv.peer = peer
	cv.self = self
	cv.messages.SetTitle(fmt.Sprintf(" %s ", peer))
}

// Peer returns the remote identity, or empty when no chat is open.
func (cv *ChatView) Peer() string {
	return cv.peer
}

// SetOnSend sets the callback when a text message is submitted.
func (cv *ChatView) SetOnSend(fn func(text string)) {
	cv.onSend = fn
}

// SetOnTyping sets the callback fired on every composer keystroke.
func (cv *ChatView) SetOnTyping(fn func()) {
	cv.onTyping = fn
}

// SetTyping toggles the peer typing indicator line.
func (cv *ChatView) SetTyping(isTyping bool) {
	cv.typing.Clear()
	if isTyping {
		color := colorNameOf(cv.theme.TypingColor)
		_, _ = fmt.Fprintf(cv.typing, " [%s::d]%s is typing...[-:-:-]", color, cv.peer)
	}
}

// Update refreshes the message window. Messages arrive oldest first.
func (cv *ChatView) Update(msgs []chat.Message) {
	cv.messages.Clear()

	for i := range msgs {
		m := &msgs[i]
		sender := m.Sender
		if sender == cv.self {
			sender = "You"
		}

		body := renderBody(m)
		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(m.Timestamp), body)
		_, _ = fmt.Fprint(cv.messages, line)
	}

	cv.messages.ScrollToEnd()
}

// renderBody formats a message payload for the terminal. Embedded media
// cannot be played inline, so clips render as tagged placeholders.
func renderBody(m *chat.Message) string {
	switch m.Kind() {
	case chat.KindText:
		return tview.Escape(sanitizeForTerminal(m.Text))
	case chat.KindAudio:
		return "[yellow] audio clip[-]"
	case chat.KindImage:
		return "[yellow] image[-]"
	default:
		return "[::d](unsupported message)[-:-:-]"
	}
}

// Composer returns the composer input field (for focus management).
func (cv *ChatView) Composer() *tview.InputField {
	return cv.composer
}

// Messages returns the messages text view (for focus management).
func (cv *ChatView) Messages() *tview.TextView {
	return cv.messages
}

func colorNameOf(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
