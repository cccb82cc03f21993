package status

import (
	"testing"

	"github.com/gsole-chat/gsole/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Starting {
		t.Errorf("initial state = %s, want STARTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Starting, Online},
		{Starting, Offline},
		{Starting, Error},
		{Online, Offline},
		{Offline, Online},
		{Offline, Draining},
		{Draining, Online},
		{Draining, Offline},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Draining); err == nil {
		t.Error("Transition(STARTING -> DRAINING) should fail")
	}
}

// TestOnlineCannotDrain verifies that DRAINING is only reachable from
// OFFLINE: a drain is the answer to a reconnect, not something that can
// happen while the connection never dropped.
func TestOnlineCannotDrain(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Online)

	if err := m.Transition(Draining); err == nil {
		t.Fatal("Transition(ONLINE -> DRAINING) should fail")
	}
	if m.Current() != Online {
		t.Errorf("state = %s, want ONLINE (should not have changed)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("status.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Offline); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStatusChanged {
		t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Starting || change.To != Offline {
		t.Errorf("change = %v -> %v, want STARTING -> OFFLINE", change.From, change.To)
	}
}

// TestReconnectDrainCycle simulates losing connectivity with queued
// messages and recovering: ONLINE → OFFLINE → DRAINING → ONLINE.
func TestReconnectDrainCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Online)

	steps := []State{Offline, Draining, Online}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Online {
		t.Errorf("final state = %s, want ONLINE", m.Current())
	}
}

// TestOfflineStartLifecycle simulates starting without connectivity:
// STARTING → OFFLINE → ONLINE.
func TestOfflineStartLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Offline, Online}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Online {
		t.Errorf("final state = %s, want ONLINE", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Starting: {},
		Online:   {Online},
		Offline:  {Offline},
		Draining: {Offline, Draining},
		Error:    {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
