package monitor

import (
	"sync"

	"github.com/kcloudops/kcloud-monitor/internal/errors"
)

// Mode is the operating mode of the monitor.
type Mode string

// Operating modes. Enhanced uses Redis and the persistent store; fallback
// runs on in-process state only.
const (
	ModeEnhanced Mode = "enhanced"
	ModeFallback Mode = "fallback"
)

// ModeMachine tracks the operating mode and the consecutive-failure count
// that drives demotion. Promotion back to enhanced only happens through an
// explicit successful probe, never as a side effect of a good cycle, so the
// monitor cannot flap between modes under intermittent backends.
type ModeMachine struct {
	mu        sync.RWMutex
	mode      Mode
	reason    string
	failures  int
	threshold int
	clock     errors.Clock
}

// NewModeMachine starts in the given mode.
func NewModeMachine(initial Mode, reason string, threshold int, clock errors.Clock) *ModeMachine {
	if clock == nil {
		clock = errors.RealClock{}
	}
	return &ModeMachine{mode: initial, reason: reason, threshold: threshold, clock: clock}
}

// Mode returns the current operating mode.
func (m *ModeMachine) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Reason returns the human-readable reason for the current mode.
func (m *ModeMachine) Reason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// ConsecutiveFailures returns the current failure streak.
func (m *ModeMachine) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

// RecordFailure counts one failed enhanced cycle and reports whether the
// streak just crossed the threshold and demoted the monitor to fallback.
// Failures recorded while already in fallback keep the streak for
// observability but never re-demote.
func (m *ModeMachine) RecordFailure(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	if m.mode == ModeEnhanced && m.failures >= m.threshold {
		m.mode = ModeFallback
		m.reason = reason
		return true
	}
	return false
}

// RecordSuccess resets the failure streak. It never changes the mode.
func (m *ModeMachine) RecordSuccess() {
	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()
}

// Promote moves fallback to enhanced after a successful probe and reports
// whether a transition happened.
func (m *ModeMachine) Promote(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeFallback {
		return false
	}
	m.mode = ModeEnhanced
	m.reason = reason
	m.failures = 0
	return true
}
