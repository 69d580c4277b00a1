// Package alert evaluates rules against cluster snapshots, deduplicates
// firings through cooldown windows, and fans fired alerts out to sinks.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kcloudops/kcloud-monitor/internal/cooldown"
	monerrors "github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/internal/rules"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// redisCooldownGrace pads persisted cooldown TTLs so a window never expires
// mid-cycle just before its in-memory counterpart would.
const redisCooldownGrace = 10 * time.Second

// Engine is the alerting core. It owns the active-alert registry; sinks are
// replaceable so the monitor can swap the delivery chain on mode changes.
type Engine struct {
	set     *rules.Set
	cds     cooldown.Store
	clock   monerrors.Clock
	errs    *monerrors.ErrorCollector
	metrics *observability.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	sinks  []Sink
	active map[string]model.Alert // alert ID -> alert, unresolved only
	order  []string               // IDs in firing order, oldest first
}

// New constructs an engine over the given rule set and cooldown store.
func New(set *rules.Set, cds cooldown.Store, clock monerrors.Clock, errs *monerrors.ErrorCollector, metrics *observability.Metrics, logger *slog.Logger, sinks ...Sink) *Engine {
	if clock == nil {
		clock = monerrors.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		set:     set,
		cds:     cds,
		clock:   clock,
		errs:    errs,
		metrics: metrics,
		logger:  logger,
		sinks:   sinks,
		active:  make(map[string]model.Alert),
	}
}

// SetSinks replaces the delivery chain. Called by the monitor when the mode
// changes; in-flight Evaluate calls finish with the chain they started with.
func (e *Engine) SetSinks(sinks ...Sink) {
	e.mu.Lock()
	e.sinks = sinks
	e.mu.Unlock()
}

// SetCooldownStore replaces the cooldown backend on mode changes.
func (e *Engine) SetCooldownStore(cds cooldown.Store) {
	e.mu.Lock()
	e.cds = cds
	e.mu.Unlock()
}

// Rules exposes the evaluated rule set for the debug endpoints.
func (e *Engine) Rules() *rules.Set { return e.set }

// Evaluate runs every enabled rule against one snapshot and returns the
// alerts that fired. A rule that fails to evaluate is reported and skipped;
// it never stops the remaining rules.
func (e *Engine) Evaluate(ctx context.Context, snap model.ClusterSnapshot) []model.Alert {
	e.mu.RLock()
	cds := e.cds
	sinks := make([]Sink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.RUnlock()

	var fired []model.Alert
	for _, rule := range e.set.Snapshot() {
		if !rule.Enabled {
			continue
		}

		ok, err := rule.Condition.Eval(snap)
		if err != nil {
			e.errs.Report(monerrors.MonitorError{
				Code:      monerrors.ErrRuleEvaluationFailed,
				Message:   err.Error(),
				Component: "alert_engine",
				Cluster:   snap.ClusterName,
				Timestamp: e.clock.Now().UnixMilli(),
				Err:       err,
			})
			e.logger.Warn("rule evaluation failed", "rule", rule.Name, "cluster", snap.ClusterName, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if rule.CooldownMinutes > 0 {
			acquired, err := cds.Acquire(ctx, rule.Name, snap.ClusterName, rule.CooldownDuration()+redisCooldownGrace)
			if err != nil {
				// Fail open: a broken cooldown backend must not silence alerts.
				e.logger.Warn("cooldown check failed, firing anyway", "rule", rule.Name, "cluster", snap.ClusterName, "error", err)
			} else if !acquired {
				if e.metrics != nil {
					e.metrics.AlertsSuppressed.Inc()
				}
				continue
			}
		}

		a := e.fire(rule, snap)
		fired = append(fired, a)
		e.deliver(ctx, sinks, a)
	}
	return fired
}

// fire builds the alert record and registers it as active. A still-active
// alert for the same rule and cluster is superseded: the new alert carries
// the next escalation level and the old one is resolved.
func (e *Engine) fire(rule rules.Rule, snap model.ClusterSnapshot) model.Alert {
	now := e.clock.Now()
	a := model.Alert{
		ID:          fmt.Sprintf("%s_%s_%d", rule.Name, snap.ClusterName, now.Unix()),
		RuleName:    rule.Name,
		ClusterName: snap.ClusterName,
		Severity:    rule.Severity,
		Message:     rules.Render(rule.Message, snap),
		RaisedAt:    now.UnixMilli(),
	}

	e.mu.Lock()
	for id, prev := range e.active {
		if prev.RuleName == a.RuleName && prev.ClusterName == a.ClusterName {
			a.EscalationLevel = prev.EscalationLevel + 1
			e.removeLocked(id)
			break
		}
	}
	e.active[a.ID] = a
	e.order = append(e.order, a.ID)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.AlertsFiredTotal.WithLabelValues(a.RuleName, string(a.Severity)).Inc()
	}
	return a
}

func (e *Engine) deliver(ctx context.Context, sinks []Sink, a model.Alert) {
	for _, s := range sinks {
		if err := s.Deliver(ctx, a); err != nil {
			if e.metrics != nil {
				e.metrics.SinkDeliveryFailures.WithLabelValues(s.Name()).Inc()
			}
			e.errs.Report(monerrors.MonitorError{
				Code:      monerrors.ErrSinkDeliveryFailed,
				Message:   fmt.Sprintf("sink %s: %v", s.Name(), err),
				Component: "alert_engine",
				Cluster:   a.ClusterName,
				Timestamp: e.clock.Now().UnixMilli(),
				Err:       err,
			})
			e.logger.Warn("alert sink delivery failed", "sink", s.Name(), "alert_id", a.ID, "error", err)
		}
	}
}

// Acknowledge marks an active alert as seen by an operator.
func (e *Engine) Acknowledge(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.active[id]
	if !ok {
		return false
	}
	a.Acknowledged = true
	e.active[id] = a
	return true
}

// Resolve removes an alert from the active view and returns it with the
// Resolved flag set. Resolving also clears the cooldown window so a
// recurrence fires immediately.
func (e *Engine) Resolve(ctx context.Context, id string) (model.Alert, bool) {
	e.mu.Lock()
	a, ok := e.active[id]
	if ok {
		e.removeLocked(id)
	}
	cds := e.cds
	e.mu.Unlock()

	if !ok {
		return model.Alert{}, false
	}
	if err := cds.Clear(ctx, a.RuleName, a.ClusterName); err != nil {
		e.logger.Warn("cooldown clear failed", "rule", a.RuleName, "cluster", a.ClusterName, "error", err)
	}
	a.Resolved = true
	return a, true
}

// Active returns unresolved alerts, newest first, narrowed by the filter.
func (e *Engine) Active(filter model.AlertFilter) []model.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Alert, 0, len(e.active))
	for i := len(e.order) - 1; i >= 0; i-- {
		a, ok := e.active[e.order[i]]
		if !ok {
			continue
		}
		if filter.ClusterName != "" && a.ClusterName != filter.ClusterName {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Summary aggregates the active view for dashboards. Recent alerts are the
// ten newest, most severe first within equal age.
func (e *Engine) Summary() model.AlertSummary {
	active := e.Active(model.AlertFilter{})

	sum := model.AlertSummary{
		Timestamp:   e.clock.Now().UnixMilli(),
		TotalActive: len(active),
		BySeverity:  make(map[model.Severity]int),
		ByCluster:   make(map[string]int),
	}
	for _, a := range active {
		sum.BySeverity[a.Severity]++
		sum.ByCluster[a.ClusterName]++
	}

	recent := make([]model.Alert, len(active))
	copy(recent, active)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].RaisedAt != recent[j].RaisedAt {
			return recent[i].RaisedAt > recent[j].RaisedAt
		}
		return recent[i].Severity.Rank() > recent[j].Severity.Rank()
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	sum.RecentAlerts = recent
	return sum
}

// SweepExpired auto-resolves alerts older than the retention window and
// returns how many were dropped. Called from the monitor's probe loop.
func (e *Engine) SweepExpired(retention time.Duration) int {
	cutoff := e.clock.Now().Add(-retention).UnixMilli()

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, a := range e.active {
		if a.RaisedAt < cutoff {
			e.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		e.logger.Info("auto-resolved expired alerts", "count", removed)
	}
	return removed
}

// removeLocked drops an alert from the registry. Caller holds e.mu.
func (e *Engine) removeLocked(id string) {
	delete(e.active, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
