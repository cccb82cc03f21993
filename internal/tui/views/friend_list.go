package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/tui/ui"
)

// FriendList is the home screen table of saved peers.
type FriendList struct {
	*tview.Table
	theme   *ui.Theme
	friends []chat.Friend
	filter  string
}

// NewFriendList creates a new friend list table.
func NewFriendList(theme *ui.Theme) *FriendList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Friends ")
	table.SetTitleColor(theme.TitleColor)

	return &FriendList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (fl *FriendList) Name() string { return "Friends" }

// Hints implements Component.
func (fl *FriendList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open chat"},
		{Key: "a", Description: "Add friend"},
		{Key: "d", Description: "Remove friend"},
		{Key: "m", Description: "My identity"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update refreshes the friend list with new data.
func (fl *FriendList) Update(friends []chat.Friend) {
	fl.friends = friends
	fl.render()
}

// SetFilter sets the active filter text and re-renders.
func (fl *FriendList) SetFilter(filter string) {
	fl.filter = filter
	fl.render()
}

// ClearFilter clears the active filter.
func (fl *FriendList) ClearFilter() {
	fl.filter = ""
	fl.render()
}

func (fl *FriendList) render() {
	fl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" IDENTITY", 1},
		{" CHANNEL", 2},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(fl.theme.TableHeaderFg).
			SetBackgroundColor(fl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		fl.SetCell(0, col, cell)
	}

	row := 1
	for _, f := range fl.visible() {
		fl.SetCell(row, 0, tview.NewTableCell(" "+f.Identity).SetExpansion(1).SetTextColor(fl.theme.FgColor))
		fl.SetCell(row, 1, tview.NewTableCell(" "+f.ChannelID).SetExpansion(2).SetTextColor(fl.theme.FgColor))
		row++
	}

	if fl.filter != "" {
		fl.SetTitle(fmt.Sprintf(" Friends (%d/%d) filter: %s ", row-1, len(fl.friends), fl.filter))
	} else {
		fl.SetTitle(fmt.Sprintf(" Friends (%d) ", len(fl.friends)))
	}
}

func (fl *FriendList) visible() []chat.Friend {
	if fl.filter == "" {
		return fl.friends
	}
	needle := strings.ToLower(fl.filter)
	var out []chat.Friend
	for _, f := range fl.friends {
		if strings.Contains(strings.ToLower(f.Identity), needle) {
			out = append(out, f)
		}
	}
	return out
}

// Selected returns the friend under the cursor, or nil.
func (fl *FriendList) Selected() *chat.Friend {
	row, _ := fl.GetSelection()
	idx := row - 1 // account for header
	visible := fl.visible()
	if idx < 0 || idx >= len(visible) {
		return nil
	}
	f := visible[idx]
	return &f
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
