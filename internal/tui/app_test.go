package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/connectivity"
	"github.com/gsole-chat/gsole/internal/gateway"
	"github.com/gsole-chat/gsole/internal/media"
	"github.com/gsole-chat/gsole/internal/outbox"
	"github.com/gsole-chat/gsole/internal/store"
	"github.com/gsole-chat/gsole/internal/tui/ui"
)

// okPinger always reports the store reachable.
type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestApp wires a real gateway, queue, and monitor behind the shell,
// with a chat already open so send routing can be exercised directly.
func newTestApp(t *testing.T, gw *gateway.Gateway, online bool) (*App, *store.DB) {
	t.Helper()
	db := testStore(t)
	b := bus.New()
	q := outbox.NewQueue(db, gw, b, nil, zap.NewNop())
	m := connectivity.NewMonitor(okPinger{}, b, nil, zap.NewNop(), time.Hour)
	if online {
		m.Start(context.Background())
		t.Cleanup(m.Stop)
		waitFor(t, "monitor online", m.Online)
	}

	a := NewApp(Params{
		Gateway:  gw,
		Queue:    q,
		Monitor:  m,
		Bus:      b,
		DB:       db,
		Recorder: media.NewRecorder(nil, nil),
		Identity: "AAA111",
		Session:  "test",
		Logger:   zap.NewNop(),
	})
	t.Cleanup(a.Stop)

	a.mu.Lock()
	a.activeChannel = "AAA111_BBB222"
	a.mu.Unlock()
	return a, db
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// rejectingStore answers every append with a rules violation and counts
// the attempts; reads succeed so only the write path fails.
func rejectingStore(posts *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
			return
		}
		_, _ = w.Write([]byte("null"))
	}))
}

func TestSendKeepsDraftOnStoreRejection(t *testing.T) {
	var posts atomic.Int32
	srv := rejectingStore(&posts)
	defer srv.Close()

	gw := gateway.New(srv.URL, zap.NewNop())
	defer gw.Close()
	a, db := newTestApp(t, gw, true)

	a.send(&chat.Draft{Sender: "AAA111", Text: "hello"})

	// The rejected draft must land in the outbox, not vanish.
	waitFor(t, "draft queued", func() bool {
		n, err := db.CountPendingOutbox()
		return err == nil && n == 1
	})
	if posts.Load() == 0 {
		t.Error("draft was queued without attempting the append first")
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if pending[0].Payload != "hello" || pending[0].ChannelID != "AAA111_BBB222" {
		t.Errorf("queued entry = %+v, want the rejected draft", pending[0])
	}

	// And the user sees the store's answer, not a silent failure.
	waitFor(t, "error flash", func() bool {
		msg := a.flash.GetMessage()
		return msg != nil && msg.Level == ui.FlashErr
	})
}

func TestSendQueuesWithoutAppendWhenOffline(t *testing.T) {
	var posts atomic.Int32
	srv := rejectingStore(&posts)
	defer srv.Close()

	gw := gateway.New(srv.URL, zap.NewNop())
	defer gw.Close()
	a, db := newTestApp(t, gw, false)

	a.send(&chat.Draft{Sender: "AAA111", Text: "hi"})

	waitFor(t, "draft queued", func() bool {
		n, err := db.CountPendingOutbox()
		return err == nil && n == 1
	})
	if got := posts.Load(); got != 0 {
		t.Errorf("append attempted %d times while offline, want 0", got)
	}
}
