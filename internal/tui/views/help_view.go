package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/gsole-chat/gsole/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := fmt.Sprintf("#%06x", hv.theme.MenuKeyColor.Hex())

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]:[-:-:-]    Command mode        [%s]Esc[-:-:-]   Cancel / Go back
  [%s]/[-:-:-]    Filter mode         [%s]?[-:-:-]     Help
  [%s]q[-:-:-]    Quit / Back         [%s]Ctrl-C[-:-:-] Quit immediately

  [::b]Friends[-:-:-]

  [%s]Enter[-:-:-]  Open chat          [%s]a[-:-:-]     Add friend
  [%s]d[-:-:-]      Remove friend      [%s]m[-:-:-]     Show my identity
  [%s]j/Down[-:-:-] Move down          [%s]k/Up[-:-:-]  Move up

  [::b]Chat[-:-:-]

  [%s]i[-:-:-]    Focus composer      [%s]Enter[-:-:-] Send message (in composer)
  [%s]r[-:-:-]    Start/stop audio    [%s]p[-:-:-]     Send image by path
  [%s]Esc[-:-:-]  Leave chat

  [::b]Commands (: mode)[-:-:-]

  [%s]:add <identity>[-:-:-]     Add a friend
  [%s]:remove <identity>[-:-:-]  Remove a friend
  [%s]:image <path>[-:-:-]       Send an image (in a chat)
  [%s]:help[-:-:-] / [%s]:h[-:-:-]        Show this help
  [%s]:quit[-:-:-] / [%s]:q[-:-:-]        Quit application
`,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
