package connectivity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/status"
	"go.uber.org/zap"
)

// flipPinger fails or succeeds on demand.
type flipPinger struct {
	mu  sync.Mutex
	err error
}

func (p *flipPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *flipPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestMonitorPublishesRestoredOnTransition(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	p := &flipPinger{err: fmt.Errorf("unreachable")}
	m := NewMonitor(p, b, nil, zap.NewNop(), 20*time.Millisecond)
	m.Start(context.Background())
	defer m.Stop()

	// First probe fails: net.lost, Online() false.
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetLost {
			t.Fatalf("first event = %q, want %q", evt.Kind, bus.KindNetLost)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for net.lost")
	}
	if m.Online() {
		t.Error("Online() = true while store unreachable")
	}

	// Store comes back: net.restored.
	p.set(nil)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetRestored {
			t.Fatalf("event = %q, want %q", evt.Kind, bus.KindNetRestored)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for net.restored")
	}
	if !m.Online() {
		t.Error("Online() = false after restore")
	}
}

func TestMonitorNoEventWithoutTransition(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	p := &flipPinger{}
	m := NewMonitor(p, b, nil, zap.NewNop(), 10*time.Millisecond)
	m.Start(context.Background())
	defer m.Stop()

	// Initial probe succeeds.
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetRestored {
			t.Fatalf("event = %q, want %q", evt.Kind, bus.KindNetRestored)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for initial event")
	}

	// Repeated successful probes must stay silent.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event without transition: %v", evt.Kind)
	case <-time.After(100 * time.Millisecond):
		// Expected.
	}
}

func TestOnlineDefaultsFalseBeforeFirstProbe(t *testing.T) {
	p := &flipPinger{}
	m := NewMonitor(p, bus.New(), nil, zap.NewNop(), time.Hour)
	if m.Online() {
		t.Error("Online() = true before any probe; sends would bypass the queue")
	}
}

func TestCleanStartupMovesStartingToOnline(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(nil)

	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	m := NewMonitor(&flipPinger{}, b, machine, zap.NewNop(), time.Hour)
	m.Start(context.Background())
	defer m.Stop()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for startup probe")
	}
	if got := machine.Current(); got != status.Online {
		t.Errorf("state after clean startup = %s, want %s", got, status.Online)
	}
}

func TestRestoreLeavesOfflineStateToTheQueue(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(nil)

	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	p := &flipPinger{err: fmt.Errorf("unreachable")}
	m := NewMonitor(p, b, machine, zap.NewNop(), 20*time.Millisecond)
	m.Start(context.Background())
	defer m.Stop()

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetLost {
			t.Fatalf("first event = %q, want %q", evt.Kind, bus.KindNetLost)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for net.lost")
	}
	if got := machine.Current(); got != status.Offline {
		t.Fatalf("state after loss = %s, want %s", got, status.Offline)
	}

	p.set(nil)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetRestored {
			t.Fatalf("event = %q, want %q", evt.Kind, bus.KindNetRestored)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for net.restored")
	}

	// A reconnect after an outage stays OFFLINE here: the outbox walks
	// OFFLINE -> DRAINING -> ONLINE once it reacts to net.restored.
	if got := machine.Current(); got != status.Offline {
		t.Errorf("state after restore = %s, want %s until the queue drains", got, status.Offline)
	}
}
