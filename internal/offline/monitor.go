package offline

import (
	"context"
	"sync"
	"time"
)

// Probe reports whether the server is reachable.
type Probe func(ctx context.Context) error

// Monitor tracks connectivity as a two-state machine and notifies
// subscribers on every transition.
type Monitor struct {
	// notifyMu serializes transitions so subscribers observe them in order.
	// Subscribers must not call Set.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	online   bool
	subs     listeners[bool]
}

func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records the connectivity state. Subscribers run synchronously, and
// only when the state actually changes. It reports whether it changed.
func (m *Monitor) Set(online bool) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.mu.Unlock()

	m.subs.emit(online)
	return true
}

// Subscribe registers fn for transitions. The returned func removes it
// and is safe to call more than once.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	return m.subs.add(fn)
}

// Check runs probe once and records the outcome. A probe cut short by
// ctx leaves the state untouched.
func (m *Monitor) Check(ctx context.Context, probe Probe) bool {
	err := probe(ctx)
	if ctx.Err() != nil {
		return m.Online()
	}
	m.Set(err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, probe Probe, interval time.Duration) {
	m.Check(ctx, probe)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx, probe)
		}
	}
}
