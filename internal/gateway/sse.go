package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/observability"
	"go.uber.org/zap"
)

// sseEvent is one event off the store's text/event-stream protocol. put and
// patch carry a JSON envelope of {path, data}; keep-alive and cancel do not.
type sseEvent struct {
	Name string
	Data ssePayload
}

// ssePayload is the decoded envelope of a put/patch event.
type ssePayload struct {
	Path string
	raw  json.RawMessage
}

// Data returns the raw JSON text of the payload ("null" when absent).
func (p ssePayload) Data() string {
	if p.raw == nil {
		return "null"
	}
	return string(p.raw)
}

// wireMessage is a message record as the store serializes it. Timestamps are
// decoded as float64 because the store's latency compensation can emit
// non-integral values.
type wireMessage struct {
	Sender    string  `json:"sender"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
	Audio     string  `json:"audio"`
	Image     string  `json:"image"`
}

func (w wireMessage) toMessage(id string) chat.Message {
	return chat.Message{
		ID:        id,
		Sender:    w.Sender,
		Timestamp: int64(w.Timestamp),
		Text:      w.Text,
		Audio:     w.Audio,
		Image:     w.Image,
	}
}

// Messages decodes the payload as a keyed collection of message records.
// Records that fail to decode individually are skipped, not fatal: one
// malformed record must not take down the whole window.
func (p ssePayload) Messages() map[string]chat.Message {
	out := make(map[string]chat.Message)
	if p.raw == nil || string(p.raw) == "null" {
		return out
	}
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &wire); err != nil {
		return out
	}
	for id, raw := range wire {
		var wm wireMessage
		if err := json.Unmarshal(raw, &wm); err != nil {
			// Keep the record visible as an unsupported placeholder.
			out[id] = chat.Message{ID: id}
			continue
		}
		out[id] = wm.toMessage(id)
	}
	return out
}

// Message decodes the payload as a single message record. Returns false when
// the payload is null (a deletion).
func (p ssePayload) Message(id string) (chat.Message, bool) {
	if p.raw == nil || string(p.raw) == "null" {
		return chat.Message{}, false
	}
	var wm wireMessage
	if err := json.Unmarshal(p.raw, &wm); err != nil {
		return chat.Message{ID: id}, true
	}
	return wm.toMessage(id), true
}

// parseSSE assembles an event from its name and accumulated data lines.
func parseSSE(name, data string) sseEvent {
	evt := sseEvent{Name: name}
	if name != "put" && name != "patch" {
		return evt
	}
	var envelope struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return sseEvent{Name: "malformed"}
	}
	evt.Data = ssePayload{Path: envelope.Path, raw: envelope.Data}
	return evt
}

// runStream keeps one event-stream subscription alive until ctx is
// cancelled, reconnecting with exponential backoff on stream errors.
func (g *Gateway) runStream(ctx context.Context, path string, handle func(sseEvent)) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry until unsubscribed

	for {
		if ctx.Err() != nil {
			return
		}

		err := g.readStream(ctx, path, handle, policy.Reset)
		if ctx.Err() != nil {
			return
		}
		wait := policy.NextBackOff()
		g.logger.Warn("stream interrupted, reconnecting",
			zap.String("path", path),
			zap.Duration("backoff", wait),
			zap.Error(err))
		observability.StreamReconnects.Inc()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// readStream opens the stream and dispatches events until it breaks.
// onConnected runs after a successful connect, resetting the caller's
// backoff.
func (g *Gateway) readStream(ctx context.Context, path string, handle func(sseEvent), onConnected func()) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		Get(path)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if resp.StatusCode() != 200 {
		return fmt.Errorf("stream rejected: HTTP %d", resp.StatusCode())
	}
	onConnected()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024) // image payloads are large

	var name string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" {
				handle(parseSSE(name, data.String()))
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}
