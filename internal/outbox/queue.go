// Package outbox holds messages the store has not acknowledged and drains
// them once connectivity returns. A message is in exactly one of
// {queued, sending, sent, dead} at any time and is never silently dropped.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/observability"
	"github.com/gsole-chat/gsole/internal/status"
	"github.com/gsole-chat/gsole/internal/store"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is the per-message retry budget. Exhausting it marks
// the entry dead and surfaces a permanent-failure notification instead of
// retrying forever.
const DefaultMaxAttempts = 8

// Appender is the slice of the gateway the queue needs.
type Appender interface {
	Append(ctx context.Context, channelID string, draft *chat.Draft) error
}

// Queue is the persistent offline send queue plus its drain scheduler.
// Drains run on net.restored events and, after a partial drain, on a bounded
// exponential backoff timer decoupled from the raw connectivity signal.
type Queue struct {
	db          *store.DB
	appender    Appender
	bus         *bus.Bus
	machine     *status.Machine
	logger      *zap.Logger
	maxAttempts int
	cancel      context.CancelFunc

	drainMu sync.Mutex // at most one drain at a time
}

// NewQueue creates the send queue.
func NewQueue(db *store.DB, a Appender, b *bus.Bus, m *status.Machine, logger *zap.Logger) *Queue {
	return &Queue{
		db:          db,
		appender:    a,
		bus:         b,
		machine:     m,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
	}
}

// Enqueue persists a draft for later delivery and returns its client id.
// Used when the device is offline or an append just failed.
func (q *Queue) Enqueue(channelID string, draft *chat.Draft) (string, error) {
	kind := draft.Kind()
	if kind == chat.KindUnsupported {
		return "", fmt.Errorf("enqueue: draft has no payload variant")
	}

	entry := &store.OutboxEntry{
		ClientMsgID: uuid.New().String(),
		ChannelID:   channelID,
		Sender:      draft.Sender,
		Kind:        string(kind),
		Payload:     payloadOf(draft),
	}
	if err := q.db.EnqueueOutbox(entry); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	q.updateDepth()
	q.bus.Publish(bus.Event{
		Kind:      bus.KindQueueEnqueued,
		Timestamp: time.Now(),
		Payload:   *entry,
	})
	q.logger.Info("message queued",
		zap.String("client_msg_id", entry.ClientMsgID),
		zap.String("channel", channelID),
		zap.String("kind", string(kind)))
	return entry.ClientMsgID, nil
}

// Pending returns the queued entries in drain order.
func (q *Queue) Pending() ([]store.OutboxEntry, error) {
	return q.db.PendingOutbox()
}

// Start runs the drain scheduler until Stop. Entries a previous run left
// in 'sending' are swept back to 'queued' first, so a crash mid-attempt
// cannot strand a message.
func (q *Queue) Start(ctx context.Context) {
	if n, err := q.db.RequeueInFlightOutbox(); err != nil {
		q.logger.Error("failed to requeue in-flight entries", zap.Error(err))
	} else if n > 0 {
		q.logger.Warn("requeued in-flight entries from previous run", zap.Int("count", n))
		q.updateDepth()
	}
	ctx, q.cancel = context.WithCancel(ctx)
	// Subscribe before the goroutine starts so a net.restored published
	// right after Start returns cannot be lost.
	ch, unsub := q.bus.Subscribe(bus.KindNetRestored, 16)
	go q.loop(ctx, ch, unsub)
}

// Stop stops the scheduler.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
}

func (q *Queue) loop(ctx context.Context, ch <-chan bus.Event, unsub func()) {
	defer unsub()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 2 * time.Minute
	policy.MaxElapsedTime = 0

	var retryC <-chan time.Time
	for {
		select {
		case <-ch:
			policy.Reset()
			retryC = q.drainAndSchedule(ctx, policy)
		case <-retryC:
			retryC = q.drainAndSchedule(ctx, policy)
		case <-ctx.Done():
			return
		}
	}
}

// drainAndSchedule drains once; if entries remain it returns a timer channel
// for the next backoff-spaced attempt.
func (q *Queue) drainAndSchedule(ctx context.Context, policy backoff.BackOff) <-chan time.Time {
	remaining := q.Drain(ctx)
	if remaining == 0 {
		return nil
	}
	wait := policy.NextBackOff()
	q.logger.Info("drain incomplete, retrying",
		zap.Int("remaining", remaining),
		zap.Duration("backoff", wait))
	return time.After(wait)
}

// Drain attempts each queued entry in FIFO order via the gateway. The first
// failed append stops the pass with that entry and everything behind it
// still queued, preserving insertion order. Returns how many entries remain
// queued.
func (q *Queue) Drain(ctx context.Context) int {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	pending, err := q.db.PendingOutbox()
	if err != nil {
		q.logger.Error("failed to read outbox", zap.Error(err))
		return 0
	}
	if len(pending) == 0 {
		// Nothing to flush after a reconnect: go straight back online.
		if q.machine != nil && q.machine.Current() == status.Offline {
			_ = q.machine.Transition(status.Online)
		}
		return 0
	}

	if q.machine != nil && q.machine.Current() == status.Offline {
		_ = q.machine.Transition(status.Draining)
	}

	for i, entry := range pending {
		if ctx.Err() != nil {
			return len(pending) - i
		}
		if err := q.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			q.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			return len(pending) - i
		}

		err := q.appender.Append(ctx, entry.ChannelID, draftOf(&entry))
		if err == nil {
			if err := q.db.MarkOutboxSent(entry.ClientMsgID); err != nil {
				q.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			}
			q.updateDepth()
			continue
		}

		// entry.Attempts counts completed attempts before this one.
		if entry.Attempts+1 >= q.maxAttempts {
			q.logger.Error("message exhausted retry budget",
				zap.String("client_msg_id", entry.ClientMsgID),
				zap.Int("attempts", entry.Attempts+1),
				zap.Error(err))
			_ = q.db.MarkOutboxDead(entry.ClientMsgID, err.Error())
			observability.QueueDeadLetters.Inc()
			q.bus.Publish(bus.Event{
				Kind:      bus.KindQueueDead,
				Timestamp: time.Now(),
				Payload:   entry,
			})
		} else {
			q.logger.Warn("send failed, message stays queued",
				zap.String("client_msg_id", entry.ClientMsgID),
				zap.Int("attempts", entry.Attempts+1),
				zap.Error(err))
			_ = q.db.MarkOutboxQueued(entry.ClientMsgID, err.Error())
		}
		q.updateDepth()
		// Stop at the first failure so later messages cannot overtake
		// earlier ones.
		remaining, _ := q.db.CountPendingOutbox()
		return remaining
	}

	// Full drain: confirm to the user.
	q.updateDepth()
	if q.machine != nil && q.machine.Current() == status.Draining {
		_ = q.machine.Transition(status.Online)
	}
	observability.QueueDrains.Inc()
	q.bus.Publish(bus.Event{
		Kind:      bus.KindQueueDrained,
		Timestamp: time.Now(),
		Payload:   len(pending),
	})
	q.logger.Info("queue drained", zap.Int("sent", len(pending)))
	return 0
}

func (q *Queue) updateDepth() {
	if n, err := q.db.CountPendingOutbox(); err == nil {
		observability.QueueDepth.Set(float64(n))
	}
}

func payloadOf(d *chat.Draft) string {
	switch d.Kind() {
	case chat.KindText:
		return d.Text
	case chat.KindAudio:
		return d.Audio
	case chat.KindImage:
		return d.Image
	}
	return ""
}

func draftOf(e *store.OutboxEntry) *chat.Draft {
	d := &chat.Draft{Sender: e.Sender}
	switch chat.Kind(e.Kind) {
	case chat.KindAudio:
		d.Audio = e.Payload
	case chat.KindImage:
		d.Image = e.Payload
	default:
		d.Text = e.Payload
	}
	return d
}
