package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/gsole-chat/gsole/internal/tui/ui"
	"github.com/rivo/tview"
)

// IdentityCard shows the local identity large, with a scannable QR code
// so a peer can add it without typing.
type IdentityCard struct {
	*tview.TextView
	theme *ui.Theme
}

// NewIdentityCard creates a new identity card view.
func NewIdentityCard(theme *ui.Theme) *IdentityCard {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" My Identity ")
	tv.SetTitleColor(theme.TitleColor)

	return &IdentityCard{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ic *IdentityCard) Name() string { return "Identity" }

// Hints implements Component.
func (ic *IdentityCard) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Show renders the identity and its QR code.
func (ic *IdentityCard) Show(identity string) {
	ic.Clear()
	_, _ = fmt.Fprintf(ic, "\n  Share this code so friends can add you:\n\n  [::b]%s[-:-:-]\n\n%s",
		identity, renderQR(identity))
}

// renderQR converts a string to a compact ASCII QR code using Unicode
// half-block characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder

	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█') // █
			case top && !bot:
				sb.WriteRune('▀') // ▀
			case !top && bot:
				sb.WriteRune('▄') // ▄
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}

	return sb.String()
}
