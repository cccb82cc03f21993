// Package gateway is the only component that talks to the external realtime
// store. It offers append, ordered message subscriptions and the ephemeral
// typing flag over the store's REST and event-stream interfaces. The gateway
// never queues or retries failed appends; that belongs to the outbox.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/observability"
	"go.uber.org/zap"
)

const (
	// DefaultTypingWindow is how long the typing flag stays set after the
	// first keystroke. Continued input does not extend it.
	DefaultTypingWindow = 3 * time.Second

	// DefaultAppendTimeout bounds a single append call so a stalled network
	// write fails instead of hanging the caller.
	DefaultAppendTimeout = 10 * time.Second

	// MessageWindow is the number of most recent messages a subscription
	// delivers.
	MessageWindow = 100
)

// MessagesFunc receives the full ordered message window on every change.
type MessagesFunc func(msgs []chat.Message)

// TypingFunc receives the presence flag whenever it changes.
type TypingFunc func(isTyping bool)

// Unsubscribe releases a subscription. Unconditional and idempotent; it runs
// on every teardown path including error paths.
type Unsubscribe func()

// Option configures a Gateway.
type Option func(*Gateway)

// WithTypingWindow overrides the typing auto-reset window.
func WithTypingWindow(d time.Duration) Option {
	return func(g *Gateway) { g.typingWindow = d }
}

// WithAppendTimeout overrides the per-append timeout.
func WithAppendTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.appendTimeout = d }
}

// Gateway is an explicitly constructed store client. Listener state lives in
// a registry keyed by channel id, not in package-level state; the composition
// root owns the single instance.
type Gateway struct {
	client        *resty.Client
	base          string
	logger        *zap.Logger
	typingWindow  time.Duration
	appendTimeout time.Duration

	mu      sync.Mutex
	streams map[string]map[int]*stream // channel id -> live subscriptions
	nextID  int
	timers  map[string]*time.Timer // pending typing resets, keyed by channel/identity
	closed  bool
}

type stream struct {
	cancel context.CancelFunc
}

// New creates a gateway for the store at baseURL.
func New(baseURL string, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		client:        resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		base:          strings.TrimRight(baseURL, "/"),
		logger:        logger,
		typingWindow:  DefaultTypingWindow,
		appendTimeout: DefaultAppendTimeout,
		streams:       make(map[string]map[int]*stream),
		timers:        make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Append writes a draft to the channel's message list. The store assigns the
// id and timestamp on the acknowledged write; the client assigns neither.
// Append does not retry: connectivity failures come back as
// *ConnectivityError, rejected writes as *StoreRejection.
func (g *Gateway) Append(ctx context.Context, channelID string, draft *chat.Draft) error {
	ctx, cancel := context.WithTimeout(ctx, g.appendTimeout)
	defer cancel()

	body := map[string]any{
		"sender":    draft.Sender,
		"timestamp": map[string]string{".sv": "timestamp"},
	}
	switch draft.Kind() {
	case chat.KindText:
		body["text"] = draft.Text
	case chat.KindAudio:
		body["audio"] = draft.Audio
	case chat.KindImage:
		body["image"] = draft.Image
	default:
		return fmt.Errorf("append: draft has no payload variant")
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/channels/" + channelID + "/messages.json")
	if err := g.wrapError("append", resp, err); err != nil {
		observability.AppendFailures.Inc()
		return err
	}
	observability.Appends.Inc()
	return nil
}

// InitializeChannel idempotently records channel metadata, keyed by channel
// id. Repeated calls refresh the participant list and activity stamp instead
// of appending duplicate records.
func (g *Gateway) InitializeChannel(ctx context.Context, channelID string, participants []string) error {
	ctx, cancel := context.WithTimeout(ctx, g.appendTimeout)
	defer cancel()

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"participants": participants,
			"lastActivity": map[string]string{".sv": "timestamp"},
		}).
		Patch("/channels/" + channelID + "/metadata.json")
	return g.wrapError("initialize channel", resp, err)
}

// SetTyping sets the caller's presence flag and schedules the automatic
// reset to false after the typing window. The window runs from the first
// keystroke; calls while a reset is already pending are no-ops.
func (g *Gateway) SetTyping(ctx context.Context, channelID, identity string) error {
	key := channelID + "/" + identity

	g.mu.Lock()
	if _, pending := g.timers[key]; pending {
		g.mu.Unlock()
		return nil
	}
	g.timers[key] = time.AfterFunc(g.typingWindow, func() {
		g.mu.Lock()
		delete(g.timers, key)
		g.mu.Unlock()
		if err := g.writeTyping(channelID, identity, false); err != nil {
			g.logger.Warn("typing reset failed", zap.String("channel", channelID), zap.Error(err))
		}
	})
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.appendTimeout)
	defer cancel()
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody("true"). // JSON boolean; resty cannot marshal a bare bool
		Put("/channels/" + channelID + "/typing/" + identity + ".json")
	return g.wrapError("set typing", resp, err)
}

func (g *Gateway) writeTyping(channelID, identity string, isTyping bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.appendTimeout)
	defer cancel()
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(strconv.FormatBool(isTyping)). // JSON boolean; resty cannot marshal a bare bool
		Put("/channels/" + channelID + "/typing/" + identity + ".json")
	return g.wrapError("set typing", resp, err)
}

// SubscribeMessages opens a live subscription to the most recent
// MessageWindow messages of a channel, ordered ascending by timestamp with
// ties broken by store-assigned id. onUpdate receives the full window on
// every change, always asynchronously from a reader goroutine, never from
// inside this call.
func (g *Gateway) SubscribeMessages(channelID string, onUpdate MessagesFunc) (Unsubscribe, error) {
	query := url.Values{}
	query.Set("orderBy", `"timestamp"`)
	query.Set("limitToLast", fmt.Sprint(MessageWindow))
	path := "/channels/" + channelID + "/messages.json?" + query.Encode()

	win := newMessageWindow()
	return g.subscribe(channelID, path, func(evt sseEvent) {
		if !win.apply(evt) {
			return
		}
		onUpdate(win.sorted())
	})
}

// SubscribeTyping opens a live subscription to one identity's presence flag
// on a channel. onChange fires with the current value and then on every
// change. Same unsubscribe semantics as SubscribeMessages.
func (g *Gateway) SubscribeTyping(channelID, identity string, onChange TypingFunc) (Unsubscribe, error) {
	path := "/channels/" + channelID + "/typing/" + identity + ".json"

	var mu sync.Mutex
	last := -1 // tri-state: unseen / false / true
	return g.subscribe(channelID, path, func(evt sseEvent) {
		if evt.Name != "put" && evt.Name != "patch" {
			return
		}
		val := 0
		if strings.TrimSpace(evt.Data.Data()) == "true" {
			val = 1
		}
		mu.Lock()
		changed := val != last
		last = val
		mu.Unlock()
		if changed {
			onChange(val == 1)
		}
	})
}

// subscribe registers a stream in the per-channel listener registry and
// starts its reader goroutine. The returned unsubscribe is safe to call more
// than once; teardown side effects run exactly once.
func (g *Gateway) subscribe(channelID, path string, handle func(sseEvent)) (Unsubscribe, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, fmt.Errorf("subscribe: gateway closed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := g.nextID
	g.nextID++
	if g.streams[channelID] == nil {
		g.streams[channelID] = make(map[int]*stream)
	}
	g.streams[channelID][id] = &stream{cancel: cancel}
	g.mu.Unlock()

	go g.runStream(ctx, path, handle)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			g.mu.Lock()
			if subs, ok := g.streams[channelID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(g.streams, channelID)
				}
			}
			g.mu.Unlock()
		})
	}, nil
}

// Ping performs a cheap reachability probe against the store. Used by the
// connectivity monitor; nothing else in the client talks to the store
// directly.
func (g *Gateway) Ping(ctx context.Context) error {
	resp, err := g.client.R().
		SetContext(ctx).
		Get("/.json?shallow=true")
	return g.wrapError("ping", resp, err)
}

// Close cancels every live subscription and pending typing reset. Safe to
// call twice.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for _, subs := range g.streams {
		for _, s := range subs {
			s.cancel()
		}
	}
	g.streams = make(map[string]map[int]*stream)
	for key, t := range g.timers {
		t.Stop()
		delete(g.timers, key)
	}
}

// wrapError maps a resty result onto the gateway error taxonomy: transport
// failures and 5xx are connectivity errors (retryable by queueing), 4xx is a
// rejection by the store's rules.
func (g *Gateway) wrapError(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &ConnectivityError{Op: op, Err: err}
	}
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return &ConnectivityError{Op: op, Err: fmt.Errorf("HTTP %d", code)}
	default:
		return &StoreRejection{Op: op, Status: code, Body: strings.TrimSpace(resp.String())}
	}
}

// messageWindow accumulates the server's view of the last N messages from
// put/patch stream events.
type messageWindow struct {
	mu   sync.Mutex
	msgs map[string]chat.Message
}

func newMessageWindow() *messageWindow {
	return &messageWindow{msgs: make(map[string]chat.Message)}
}

// apply folds one stream event into the window. Returns false for events
// that do not change message state (keep-alives, auth noise).
func (w *messageWindow) apply(evt sseEvent) bool {
	if evt.Name != "put" && evt.Name != "patch" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case evt.Data.Path == "/" && evt.Name == "put":
		w.msgs = make(map[string]chat.Message)
		for id, m := range evt.Data.Messages() {
			w.msgs[id] = m
		}
	case evt.Data.Path == "/":
		// Patch at the root merges children.
		for id, m := range evt.Data.Messages() {
			w.msgs[id] = m
		}
	default:
		id := strings.TrimPrefix(evt.Data.Path, "/")
		if strings.Contains(id, "/") {
			// A write below a single message; re-deliver is not worth
			// partial decoding, ignore.
			return false
		}
		if m, ok := evt.Data.Message(id); ok {
			w.msgs[id] = m
		} else {
			delete(w.msgs, id)
		}
	}
	return true
}

// sorted returns the window ascending by timestamp, ties broken by the
// store-assigned id (push ids sort chronologically), trimmed to the last
// MessageWindow entries.
func (w *messageWindow) sorted() []chat.Message {
	w.mu.Lock()
	out := make([]chat.Message, 0, len(w.msgs))
	for _, m := range w.msgs {
		out = append(out, m)
	}
	w.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > MessageWindow {
		out = out[len(out)-MessageWindow:]
	}
	return out
}
