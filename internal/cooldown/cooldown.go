// Package cooldown tracks per-rule, per-cluster suppression windows so a
// firing rule does not re-alert on every collection cycle.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	monerrors "github.com/kcloudops/kcloud-monitor/internal/errors"
)

// Store records cooldown windows. Implementations must be safe for
// concurrent use.
type Store interface {
	// Acquire starts a cooldown window for the rule/cluster pair. It returns
	// true when no window was active (the caller may fire the alert) and
	// false while a previous window is still open.
	Acquire(ctx context.Context, ruleName, clusterName string, ttl time.Duration) (bool, error)

	// Clear drops an active window, letting the next evaluation fire again.
	Clear(ctx context.Context, ruleName, clusterName string) error
}

// Key is the canonical cooldown identifier shared by all Store
// implementations, so memory and Redis windows line up during mode changes.
func Key(ruleName, clusterName string) string {
	return fmt.Sprintf("%s_%s", ruleName, clusterName)
}

// Memory is the in-process Store used in fallback mode. Expired entries are
// dropped lazily on access.
type Memory struct {
	clock monerrors.Clock

	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemory returns an empty in-process cooldown store.
func NewMemory(clock monerrors.Clock) *Memory {
	if clock == nil {
		clock = monerrors.RealClock{}
	}
	return &Memory{clock: clock, expires: make(map[string]time.Time)}
}

// Acquire implements Store.
func (m *Memory) Acquire(_ context.Context, ruleName, clusterName string, ttl time.Duration) (bool, error) {
	now := m.clock.Now()
	k := Key(ruleName, clusterName)

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.expires[k]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[k] = now.Add(ttl)
	return true, nil
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context, ruleName, clusterName string) error {
	m.mu.Lock()
	delete(m.expires, Key(ruleName, clusterName))
	m.mu.Unlock()
	return nil
}

// Sweep removes expired entries. The monitor calls this from its probe loop
// to keep long-running fallback processes from accumulating dead windows.
func (m *Memory) Sweep() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
			removed++
		}
	}
	return removed
}
