package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/store"
)

// DefaultPingInterval is how often StoreMonitor checks its backends.
const DefaultPingInterval = 15 * time.Second

// StoreMonitor tracks whether every configured backend answers a ping.
// Requests are refused with StoreUnavailable while any of them is down.
type StoreMonitor struct {
	mu      sync.Mutex
	pingers map[string]store.Pinger
	up      atomic.Bool
	log     logging.Logger
}

func NewStoreMonitor(log logging.Logger) *StoreMonitor {
	if log == nil {
		log = logging.Discard()
	}
	m := &StoreMonitor{pingers: make(map[string]store.Pinger), log: log}
	m.up.Store(true)
	return m
}

// Add registers a backend under name.
func (m *StoreMonitor) Add(name string, p store.Pinger) {
	m.mu.Lock()
	m.pingers[name] = p
	m.mu.Unlock()
}

// Available reports the result of the last check.
func (m *StoreMonitor) Available() bool {
	return m.up.Load()
}

// Check pings every backend and updates the flag. It returns the names of
// the backends that failed.
func (m *StoreMonitor) Check(ctx context.Context) []string {
	m.mu.Lock()
	pingers := make(map[string]store.Pinger, len(m.pingers))
	for k, v := range m.pingers {
		pingers[k] = v
	}
	m.mu.Unlock()

	var down []string
	for name, p := range pingers {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			m.log.Warn(ctx, "store ping failed", "store", name, "error", err)
			down = append(down, name)
		}
	}

	up := len(down) == 0
	if prev := m.up.Swap(up); prev != up {
		if up {
			m.log.Info(ctx, "stores available again")
		} else {
			m.log.Error(ctx, "stores unavailable", "down", down)
		}
	}
	return down
}

// Run checks immediately and then every interval until ctx is done.
func (m *StoreMonitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
