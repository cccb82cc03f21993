// Package connectivity watches reachability of the realtime store and turns
// transitions into bus events, standing in for the browser's online/offline
// signals.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/observability"
	"github.com/gsole-chat/gsole/internal/status"
	"go.uber.org/zap"
)

const (
	// DefaultInterval between reachability probes.
	DefaultInterval = 5 * time.Second
	// probeTimeout bounds a single probe.
	probeTimeout = 3 * time.Second
)

// Pinger is the probe the monitor runs; in practice the gateway, which is
// the only component allowed to talk to the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls the store and publishes net.restored / net.lost events on
// transitions. The outbox subscribes to net.restored to drain the queue.
type Monitor struct {
	pinger   Pinger
	bus      *bus.Bus
	machine  *status.Machine
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc

	mu     sync.RWMutex
	online bool
	known  bool // false until the first probe completes
}

// NewMonitor creates a connectivity monitor.
func NewMonitor(p Pinger, b *bus.Bus, m *status.Machine, logger *zap.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		pinger:   p,
		bus:      b,
		machine:  m,
		logger:   logger,
		interval: interval,
	}
}

// Online reports the last observed connectivity. Before the first probe it
// reports false; the send path then queues, which is the safe default.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Start probes once immediately, then on a ticker until Stop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
}

// Stop stops the monitor loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	err := m.pinger.Ping(ctx)
	m.observe(err == nil)
}

// observe folds one probe result into the monitor state, publishing an
// event only on transitions.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	changed := !m.known || online != m.online
	m.online = online
	m.known = true
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.logger.Info("connectivity restored")
		observability.ConnectivityChanges.WithLabelValues("online").Inc()
		if m.machine != nil && m.machine.Current() == status.Starting {
			_ = m.machine.Transition(status.Online)
		}
		// After an outage the outbox reacts to net.restored and walks
		// Offline -> Draining -> Online itself once the queue is flushed.
		m.bus.Publish(bus.Event{Kind: bus.KindNetRestored, Timestamp: time.Now()})
	} else {
		m.logger.Warn("connectivity lost")
		observability.ConnectivityChanges.WithLabelValues("offline").Inc()
		if m.machine != nil {
			_ = m.machine.Transition(status.Offline)
		}
		m.bus.Publish(bus.Event{Kind: bus.KindNetLost, Timestamp: time.Now()})
	}
}
