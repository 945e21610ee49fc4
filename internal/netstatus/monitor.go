// Package netstatus tracks whether the backend is reachable. Raw reachability
// observations are debounced so a flapping link does not thrash whatever
// reacts to transitions.
package netstatus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultThreshold is how many consecutive agreeing observations flip the
// state.
const DefaultThreshold = 2

const defaultInterval = 15 * time.Second

// Prober checks reachability; a nil error means reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Online   bool
	Forced   bool
	Since    time.Time
	Disagree int // consecutive observations contradicting Online
}

type subscriber struct {
	id int
	fn func(online bool)
}

// Monitor exposes the debounced online/offline state and notifies
// subscribers on every transition.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	forced    bool
	since     time.Time
	disagree  int
	threshold int
	subs      []subscriber
	nextID    int
	logger    *slog.Logger
}

// NewMonitor creates a monitor that starts online. A threshold below 1
// selects DefaultThreshold.
func NewMonitor(threshold int, logger *slog.Logger) *Monitor {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		online:    true,
		since:     time.Now(),
		threshold: threshold,
		logger:    logger,
	}
}

// Online reports the current debounced state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Online: m.online, Forced: m.forced, Since: m.since, Disagree: m.disagree}
}

// Subscribe registers fn for transitions. fn runs on the goroutine that
// caused the transition, after the state has changed. The returned func
// unregisters it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Observe records one reachability sample. The state flips only after
// threshold consecutive samples disagree with it. Samples are ignored while
// the state is forced.
func (m *Monitor) Observe(reachable bool) {
	m.mu.Lock()
	if m.forced {
		m.mu.Unlock()
		return
	}
	if reachable == m.online {
		m.disagree = 0
		m.mu.Unlock()
		return
	}
	m.disagree++
	if m.disagree < m.threshold {
		m.mu.Unlock()
		return
	}
	subs := m.transitionLocked(reachable)
	m.mu.Unlock()
	m.notify(subs, reachable)
}

// Force pins the state without debouncing until Release is called.
func (m *Monitor) Force(online bool) {
	m.mu.Lock()
	m.forced = true
	if m.online == online {
		m.mu.Unlock()
		return
	}
	subs := m.transitionLocked(online)
	m.mu.Unlock()
	m.notify(subs, online)
}

// Release lets observations drive the state again.
func (m *Monitor) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = false
	m.disagree = 0
}

func (m *Monitor) transitionLocked(online bool) []subscriber {
	m.online = online
	m.since = time.Now()
	m.disagree = 0
	m.logger.Info("network status changed", "online", online)
	return append([]subscriber(nil), m.subs...)
}

func (m *Monitor) notify(subs []subscriber, online bool) {
	for _, s := range subs {
		s.fn(online)
	}
}

// Run probes at the given cadence until ctx is done, feeding each result to
// Observe. The first probe runs immediately.
func (m *Monitor) Run(ctx context.Context, prober Prober, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := prober.Ping(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger.Debug("heartbeat failed", "error", err)
		}
		m.Observe(err == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
