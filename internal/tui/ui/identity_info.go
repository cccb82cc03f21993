package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// IdentityData holds client information for display in the header.
type IdentityData struct {
	Identity string
	Session  string
	Status   string
	Friends  int
	Queued   int
	Uptime   time.Duration
}

// IdentityInfo displays the local identity and client state in the header.
type IdentityInfo struct {
	*tview.TextView
	theme *Theme
}

// NewIdentityInfo creates a new identity info panel.
func NewIdentityInfo(theme *Theme) *IdentityInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &IdentityInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the identity info.
func (ii *IdentityInfo) Update(data *IdentityData) {
	ii.Clear()
	if data == nil {
		return
	}

	fgColor := colorName(ii.theme.FgColor)
	counterColor := colorName(ii.theme.CounterColor)

	text := fmt.Sprintf(
		"[%s::b]Identity:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Session:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Friends:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Queued:[-:-:-]   [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]   [%s]%s[-]",
		fgColor, counterColor, data.Identity,
		fgColor, counterColor, data.Session,
		fgColor, counterColor, data.Status,
		fgColor, counterColor, data.Friends,
		fgColor, counterColor, data.Queued,
		fgColor, counterColor, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprint(ii, text)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
