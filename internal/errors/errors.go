// Package errors defines the typed error vocabulary of the pipeline and the
// collector that tracks which errors are currently live.
package errors

import (
	"sort"
	"sync"
	"time"
)

// Code identifies a failure class. Codes are surfaced on the health endpoint
// and in fan-out payloads, so they are stable strings.
type Code string

const (
	ErrControlPlaneUnreachable Code = "CONTROL_PLANE_UNREACHABLE"
	ErrClusterNotFound         Code = "CLUSTER_NOT_FOUND"
	ErrCollectionFailed        Code = "COLLECTION_FAILED"
	ErrRuleEvaluationFailed    Code = "RULE_EVALUATION_FAILED"
	ErrRuleLoadFailed          Code = "RULE_LOAD_FAILED"
	ErrSinkDeliveryFailed      Code = "SINK_DELIVERY_FAILED"
	ErrCacheUnavailable        Code = "CACHE_UNAVAILABLE"
	ErrStoreUnavailable        Code = "STORE_UNAVAILABLE"
	ErrModeTransitionFailed    Code = "MODE_TRANSITION_FAILED"
	ErrCycleTimeout            Code = "CYCLE_TIMEOUT"
)

// defaultTTL is how long an error stays active without being re-reported.
const defaultTTL = 5 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// MonitorError is a typed pipeline error with code, component, and an
// optional wrapped cause.
type MonitorError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Cluster   string `json:"cluster,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Err       error  `json:"-"`
}

func (e *MonitorError) Error() string { return e.Message }

// Unwrap returns the wrapped cause for errors.Is/As compatibility.
func (e *MonitorError) Unwrap() error { return e.Err }

// dedupKey identifies one error stream: the same code from the same component
// about the same cluster refreshes rather than accumulates.
func (e *MonitorError) dedupKey() string {
	return string(e.Code) + "|" + e.Component + "|" + e.Cluster
}

type record struct {
	err       MonitorError
	expiresAt time.Time
}

// ErrorCollector tracks the currently live errors of the pipeline. Reporting
// the same error stream again refreshes its message and expiry; streams not
// re-reported within the TTL window drop out of the active views.
type ErrorCollector struct {
	clock Clock

	mu      sync.Mutex
	records map[string]record
}

// NewErrorCollector creates an ErrorCollector using clock for expiry.
func NewErrorCollector(clock Clock) *ErrorCollector {
	return &ErrorCollector{
		clock:   clock,
		records: make(map[string]record),
	}
}

// Report marks an error stream as live for the next TTL window.
func (ec *ErrorCollector) Report(err MonitorError) {
	ec.mu.Lock()
	ec.records[err.dedupKey()] = record{
		err:       err,
		expiresAt: ec.clock.Now().Add(defaultTTL),
	}
	ec.mu.Unlock()
}

// live drops expired records and returns the rest. Caller holds the lock.
func (ec *ErrorCollector) live() []MonitorError {
	now := ec.clock.Now()
	out := make([]MonitorError, 0, len(ec.records))
	for k, r := range ec.records {
		if now.After(r.expiresAt) {
			delete(ec.records, k)
			continue
		}
		out = append(out, r.err)
	}
	return out
}

// GetActiveErrors returns every error reported within the TTL window.
func (ec *ErrorCollector) GetActiveErrors() []MonitorError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.live()
}

// GetActiveErrorCodes returns the sorted, deduplicated codes of the active
// errors.
func (ec *ErrorCollector) GetActiveErrorCodes() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	seen := make(map[Code]struct{})
	codes := make([]string, 0)
	for _, e := range ec.live() {
		if _, ok := seen[e.Code]; ok {
			continue
		}
		seen[e.Code] = struct{}{}
		codes = append(codes, string(e.Code))
	}
	sort.Strings(codes)
	return codes
}

// Clear drops every tracked error.
func (ec *ErrorCollector) Clear() {
	ec.mu.Lock()
	ec.records = make(map[string]record)
	ec.mu.Unlock()
}
