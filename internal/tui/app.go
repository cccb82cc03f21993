package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/connectivity"
	"github.com/gsole-chat/gsole/internal/gateway"
	"github.com/gsole-chat/gsole/internal/media"
	"github.com/gsole-chat/gsole/internal/outbox"
	"github.com/gsole-chat/gsole/internal/status"
	"github.com/gsole-chat/gsole/internal/store"
	"github.com/gsole-chat/gsole/internal/tui/ui"
	"github.com/gsole-chat/gsole/internal/tui/views"
)

// Params carries the dependencies of the TUI application.
type Params struct {
	Gateway  *gateway.Gateway
	Queue    *outbox.Queue
	Monitor  *connectivity.Monitor
	Bus      *bus.Bus
	DB       *store.DB
	Recorder *media.Recorder
	Identity string
	Session  string
	Logger   *zap.Logger
}

// App is the main TUI application shell. It owns navigation, key
// dispatch, and the lifecycle of the per-channel subscriptions.
type App struct {
	app    *tview.Application
	pages  *ui.Pages
	theme  *ui.Theme
	logger *zap.Logger

	gw       *gateway.Gateway
	queue    *outbox.Queue
	monitor  *connectivity.Monitor
	bus      *bus.Bus
	db       *store.DB
	recorder *media.Recorder

	identity string
	session  string
	started  time.Time

	flash        *ui.FlashModel
	logo         *ui.Logo
	identityInfo *ui.IdentityInfo
	menu         *ui.Menu
	crumbs       *ui.Crumbs
	flashBar     *ui.FlashBar
	prompt       *ui.Prompt

	friendList   *views.FriendList
	chatView     *views.ChatView
	identityCard *views.IdentityCard
	helpView     *views.HelpView

	components map[string]ui.Component

	mu            sync.Mutex
	unsubscribe   func()
	activeChannel string

	statusMu   sync.RWMutex
	statusText string

	friendsMu sync.RWMutex
	friends   []chat.Friend

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(p Params) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:          tview.NewApplication(),
		pages:        ui.NewPages(),
		theme:        theme,
		logger:       p.Logger.Named("tui"),
		gw:           p.Gateway,
		queue:        p.Queue,
		monitor:      p.Monitor,
		bus:          p.Bus,
		db:           p.DB,
		recorder:     p.Recorder,
		identity:     p.Identity,
		session:      p.Session,
		started:      time.Now(),
		flash:        ui.NewFlashModel(),
		logo:         ui.NewLogo(theme),
		identityInfo: ui.NewIdentityInfo(theme),
		menu:         ui.NewMenu(theme),
		crumbs:       ui.NewCrumbs(theme),
		flashBar:     ui.NewFlashBar(theme),
		prompt:       ui.NewPrompt(theme),
		friendList:   views.NewFriendList(theme),
		chatView:     views.NewChatView(theme),
		identityCard: views.NewIdentityCard(theme),
		helpView:     views.NewHelpView(theme),
		statusText:   string(status.Starting),
		ctx:          ctx,
		cancel:       cancel,
	}

	a.components = map[string]ui.Component{
		"friends":  a.friendList,
		"chat":     a.chatView,
		"identity": a.identityCard,
		"help":     a.helpView,
	}

	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.friendList.SetSelectedFunc(func(row, col int) {
		if f := a.friendList.Selected(); f != nil {
			a.openChat(*f)
		}
	})

	a.chatView.SetOnSend(func(text string) {
		a.send(&chat.Draft{Sender: a.identity, Text: text})
	})

	a.chatView.SetOnTyping(func() {
		channelID := a.activeChannelID()
		if channelID == "" {
			return
		}
		go func() {
			if err := a.gw.SetTyping(a.ctx, channelID, a.identity); err != nil {
				a.logger.Debug("typing write failed", zap.Error(err))
			}
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.pages.Pop()
		a.focusCurrent()
		switch mode {
		case ui.PromptFilter:
			a.friendList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		a.pages.Pop()
		a.focusCurrent()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.identityInfo, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 22, 0, false)

	promptPage := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewBox().SetBackgroundColor(a.theme.BgColor), 0, 1, false).
		AddItem(a.prompt, 3, 0, true)

	a.pages.AddPage("friends", a.friendList, true, false)
	a.pages.AddPage("chat", a.chatView, true, false)
	a.pages.AddPage("identity", a.identityCard, true, false)
	a.pages.AddPage("help", a.helpView, true, false)
	a.pages.AddPage("prompt", promptPage, true, false)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		if comp, ok := a.components[a.pages.Current()]; ok {
			a.menu.Update(comp.Hints())
		}
	})
	a.pages.Reset("friends")

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
	a.app.SetFocus(a.friendList)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()

	// The prompt owns its own Enter/Escape handling.
	if page == "prompt" {
		return event
	}

	if event.Key() == tcell.KeyEscape {
		switch page {
		case "chat":
			if a.app.GetFocus() == a.chatView.Composer() {
				a.app.SetFocus(a.chatView.Messages())
				return nil
			}
			a.closeChat()
		case "identity", "help":
			a.pages.Pop()
			a.focusCurrent()
		case "friends":
			a.friendList.ClearFilter()
		}
		return nil
	}

	// Let the composer handle all other keys normally.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	if event.Key() != tcell.KeyRune {
		return event
	}

	switch {
	case event.Rune() == 'q':
		if page == "friends" {
			a.Stop()
		} else if page == "chat" {
			a.closeChat()
		} else {
			a.pages.Pop()
			a.focusCurrent()
		}
		return nil
	case event.Rune() == '?':
		a.pages.Push("help")
		a.app.SetFocus(a.helpView)
		return nil
	case event.Rune() == ':':
		a.showPrompt(ui.PromptCommand, "")
		return nil
	}

	switch page {
	case "friends":
		switch event.Rune() {
		case 'a':
			a.showPrompt(ui.PromptCommand, "add ")
			return nil
		case 'd':
			if f := a.friendList.Selected(); f != nil {
				a.removeFriend(f.Identity)
			}
			return nil
		case 'm':
			a.identityCard.Show(a.identity)
			a.pages.Push("identity")
			a.app.SetFocus(a.identityCard)
			return nil
		case '/':
			a.showPrompt(ui.PromptFilter, "")
			return nil
		}
	case "chat":
		switch event.Rune() {
		case 'i':
			a.app.SetFocus(a.chatView.Composer())
			return nil
		case 'r':
			a.toggleRecording()
			return nil
		case 'p':
			a.showPrompt(ui.PromptCommand, "image ")
			return nil
		}
	}

	return event
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "add":
		a.addFriend(cmd.Args)
	case "remove":
		a.removeFriend(cmd.Args)
	case "image":
		a.sendImage(cmd.Args)
	case "help", "h":
		a.pages.Push("help")
		a.app.SetFocus(a.helpView)
	case "quit", "q":
		a.Stop()
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

func (a *App) showPrompt(mode ui.PromptMode, prefill string) {
	a.prompt.Activate(mode)
	if prefill != "" {
		a.prompt.SetText(prefill)
	}
	a.pages.Push("prompt")
	a.app.SetFocus(a.prompt)
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case "friends":
		a.app.SetFocus(a.friendList)
	case "chat":
		a.app.SetFocus(a.chatView.Composer())
	case "identity":
		a.app.SetFocus(a.identityCard)
	case "help":
		a.app.SetFocus(a.helpView)
	}
}

func (a *App) addFriend(raw string) {
	id := chat.NormalizeIdentity(raw)
	if err := chat.ValidateIdentity(id); err != nil {
		a.flash.Err(err)
		return
	}
	if id == a.identity {
		a.flash.Warn("you cannot add yourself")
		return
	}

	f := &chat.Friend{
		Identity:  id,
		ChannelID: chat.ChannelID(a.identity, id),
	}
	if err := a.db.AddFriend(f); err != nil {
		a.flash.Err(err)
		return
	}
	a.refreshFriends()
	a.flash.Info("added " + id)
}

func (a *App) removeFriend(raw string) {
	id := chat.NormalizeIdentity(raw)
	if id == "" {
		return
	}
	if err := a.db.RemoveFriend(id); err != nil {
		a.flash.Err(err)
		return
	}
	a.refreshFriends()
	a.flash.Info("removed " + id)
}

func (a *App) refreshFriends() {
	friends, err := a.db.ListFriends()
	if err != nil {
		a.logger.Error("list friends", zap.Error(err))
		return
	}
	a.friendsMu.Lock()
	a.friends = friends
	a.friendsMu.Unlock()
	a.friendList.Update(friends)
}

// openChat mounts a channel: the metadata upsert plus both realtime
// subscriptions. The teardown closure releases both together.
func (a *App) openChat(f chat.Friend) {
	a.closeSubscriptions()

	a.chatView.SetPeer(f.Identity, a.identity)
	a.chatView.Update(nil)
	a.chatView.SetTyping(false)

	go func() {
		if err := a.gw.InitializeChannel(a.ctx, f.ChannelID, []string{a.identity, f.Identity}); err != nil {
			a.logger.Warn("channel init failed", zap.String("channel", f.ChannelID), zap.Error(err))
		}
	}()

	unsubMsgs, err := a.gw.SubscribeMessages(f.ChannelID, func(msgs []chat.Message) {
		a.app.QueueUpdateDraw(func() {
			if a.chatView.Peer() == f.Identity {
				a.chatView.Update(msgs)
			}
		})
	})
	if err != nil {
		a.flash.Err(err)
		return
	}

	unsubTyping, err := a.gw.SubscribeTyping(f.ChannelID, f.Identity, func(isTyping bool) {
		a.app.QueueUpdateDraw(func() {
			if a.chatView.Peer() == f.Identity {
				a.chatView.SetTyping(isTyping)
			}
		})
	})
	if err != nil {
		unsubMsgs()
		a.flash.Err(err)
		return
	}

	a.mu.Lock()
	a.activeChannel = f.ChannelID
	a.unsubscribe = func() {
		unsubMsgs()
		unsubTyping()
	}
	a.mu.Unlock()

	a.pages.Push("chat")
	a.app.SetFocus(a.chatView.Composer())
}

func (a *App) closeChat() {
	a.closeSubscriptions()
	a.chatView.SetTyping(false)
	if a.pages.Current() == "chat" {
		a.pages.Pop()
	}
	a.app.SetFocus(a.friendList)
}

func (a *App) closeSubscriptions() {
	a.mu.Lock()
	unsub := a.unsubscribe
	a.unsubscribe = nil
	a.activeChannel = ""
	a.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (a *App) activeChannelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeChannel
}

// send delivers a draft directly when the network is up, and falls back
// to the local queue otherwise. The composer is already cleared by the
// time this runs, whatever the outcome.
func (a *App) send(draft *chat.Draft) {
	channelID := a.activeChannelID()
	if channelID == "" {
		return
	}

	go func() {
		if !a.monitor.Online() {
			a.enqueue(channelID, draft)
			return
		}

		err := a.gw.Append(a.ctx, channelID, draft)
		var connErr *gateway.ConnectivityError
		switch {
		case err == nil:
		case errors.As(err, &connErr):
			a.enqueue(channelID, draft)
		default:
			// Rejections keep the draft too: queue it for a later
			// retry, then show the store's answer on top of the
			// queued notice so the user sees what went wrong.
			a.enqueue(channelID, draft)
			a.flash.Err(err)
		}
	}()
}

func (a *App) enqueue(channelID string, draft *chat.Draft) {
	if _, err := a.queue.Enqueue(channelID, draft); err != nil {
		a.flash.Err(err)
		return
	}
	a.flash.Warn("offline: message queued")
}

func (a *App) toggleRecording() {
	if !a.recorder.Recording() {
		if err := a.recorder.Start(); err != nil {
			var unavailable *media.CaptureUnavailableError
			if errors.As(err, &unavailable) {
				a.flash.Warn(unavailable.Error())
			} else {
				a.flash.Err(err)
			}
			return
		}
		a.flash.Info("recording... press r to stop")
		return
	}

	clip, err := a.recorder.Stop()
	if err != nil {
		a.flash.Err(err)
		return
	}
	a.send(&chat.Draft{Sender: a.identity, Audio: clip})
	a.flash.Info("audio clip sent")
}

func (a *App) sendImage(path string) {
	if path == "" {
		a.flash.Warn("usage: :image <path>")
		return
	}
	go func() {
		f, err := os.Open(path)
		if err != nil {
			a.flash.Err(err)
			return
		}
		defer f.Close()

		uri, err := media.EncodeImageMessage(f)
		if err != nil {
			a.flash.Err(fmt.Errorf("encode image: %w", err))
			return
		}
		a.send(&chat.Draft{Sender: a.identity, Image: uri})
		a.flash.Info("image sent")
	}()
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.refreshFriends()
	a.identityCard.Show(a.identity)
	a.updateHeader()

	go a.watchBus()
	go a.watchFlash()
	go a.refreshLoop()

	return a.app.Run()
}

func (a *App) watchBus() {
	events, unsub := a.bus.Subscribe("", 16)
	defer unsub()

	for {
		select {
		case evt := <-events:
			a.handleEvent(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStatusChanged:
		if change, ok := evt.Payload.(status.StatusChange); ok {
			a.statusMu.Lock()
			a.statusText = string(change.To)
			a.statusMu.Unlock()
		}
	case bus.KindNetLost:
		a.flash.Warn("connection lost: messages will be queued")
	case bus.KindNetRestored:
		a.flash.Info("connection restored")
	case bus.KindQueueDrained:
		a.flash.Info("queued messages delivered")
	case bus.KindQueueDead:
		a.flash.Warn("a queued message exhausted its retries and was dropped")
	}
	a.app.QueueUpdateDraw(a.updateHeader)
}

func (a *App) watchFlash() {
	for {
		select {
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.GetMessage())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.updateHeader()
				a.flashBar.Update(a.flash.GetMessage())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) updateHeader() {
	a.statusMu.RLock()
	statusText := a.statusText
	a.statusMu.RUnlock()

	a.friendsMu.RLock()
	friendCount := len(a.friends)
	a.friendsMu.RUnlock()

	queued, err := a.db.CountPendingOutbox()
	if err != nil {
		a.logger.Debug("count pending", zap.Error(err))
	}

	a.identityInfo.Update(&ui.IdentityData{
		Identity: a.identity,
		Session:  a.session,
		Status:   statusText,
		Friends:  friendCount,
		Queued:   queued,
		Uptime:   time.Since(a.started),
	})
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.closeSubscriptions()
	a.cancel()
	a.app.Stop()
}
