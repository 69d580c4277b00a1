// Package monitor is the orchestrator: it drives the collection cycle,
// feeds the alert engine, maintains history and group rollups, and moves
// between enhanced and fallback mode as the persistent collaborators come
// and go.
package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kcloudops/kcloud-monitor/internal/aggregate"
	"github.com/kcloudops/kcloud-monitor/internal/alert"
	"github.com/kcloudops/kcloud-monitor/internal/cache"
	"github.com/kcloudops/kcloud-monitor/internal/collector"
	"github.com/kcloudops/kcloud-monitor/internal/config"
	"github.com/kcloudops/kcloud-monitor/internal/cooldown"
	"github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/internal/history"
	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/internal/rules"
	"github.com/kcloudops/kcloud-monitor/internal/store"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// snapshotRetention bounds how long persisted metric rows are kept.
const snapshotRetention = 7 * 24 * time.Hour

// Monitor wires the collector, alert engine, history, and fan-out together
// and owns the mode machine. Cache and persistent store are optional; when
// either is missing the monitor runs permanently in fallback mode.
type Monitor struct {
	cfg       *config.Config
	collector *collector.Collector
	engine    *alert.Engine
	set       *rules.Set
	hist      *history.History
	mode      *ModeMachine
	errs      *errors.ErrorCollector
	metrics   *observability.Metrics
	clock     errors.Clock
	logger    *slog.Logger

	cache *cache.Cache  // nil in store-less deployments
	store *store.Store  // nil in store-less deployments
	locks collectLocker // nil without a cache

	enhanced Sink
	fallback Sink

	enhancedAlertSinks []alert.Sink
	fallbackAlertSinks []alert.Sink
	redisCooldown      cooldown.Store
	memCooldown        *cooldown.Memory

	cycle     atomic.Uint64
	ready     atomic.Bool
	startedAt time.Time
}

// Deps bundles the monitor's collaborators. Cache, Store, and the sinks
// derived from them may be nil.
type Deps struct {
	Collector *collector.Collector
	Engine    *alert.Engine
	RuleSet   *rules.Set
	History   *history.History
	Cache     *cache.Cache
	Store     *store.Store
	Errors    *errors.ErrorCollector
	Metrics   *observability.Metrics
	Clock     errors.Clock
	Logger    *slog.Logger
}

// New builds the monitor. The initial mode is decided on the first Run
// probe, not here.
func New(cfg *config.Config, d Deps) *Monitor {
	clock := d.Clock
	if clock == nil {
		clock = errors.RealClock{}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:       cfg,
		collector: d.Collector,
		engine:    d.Engine,
		set:       d.RuleSet,
		hist:      d.History,
		mode:      NewModeMachine(ModeFallback, "starting", cfg.FailureThreshold, clock),
		errs:      d.Errors,
		metrics:   d.Metrics,
		clock:     clock,
		logger:    logger,
		cache:     d.Cache,
		store:     d.Store,
		fallback:  NewFallbackSink(logger),
		startedAt: time.Now(),

		memCooldown: cooldown.NewMemory(clock),
	}

	logSink := alert.NewLogSink(logger)
	m.fallbackAlertSinks = []alert.Sink{logSink}

	if d.Cache != nil && d.Store != nil {
		m.enhanced = NewEnhancedSink(d.Cache, d.Store)
		m.enhancedAlertSinks = []alert.Sink{logSink, cache.NewSink(d.Cache), store.NewSink(d.Store)}
		m.redisCooldown = cache.NewCooldownStore(d.Cache.Client())
		m.locks = d.Cache
	}
	return m
}

// collectLocker is the per-cluster collection lock surface. Locks stop
// concurrent monitor instances sharing one Redis from double-collecting.
type collectLocker interface {
	TryCollectLock(ctx context.Context, cluster string) (bool, error)
	ReleaseCollectLock(ctx context.Context, cluster string) error
}

// Mode returns the current operating mode.
func (m *Monitor) Mode() Mode { return m.mode.Mode() }

// IsReady reports whether the monitor finished startup. Implements
// health.ReadinessChecker.
func (m *Monitor) IsReady() bool { return m.ready.Load() }

// Run drives the monitor until the context is canceled. The collection loop
// and the probe loop run independently so a hung probe never stalls cycles.
func (m *Monitor) Run(ctx context.Context) error {
	m.startup(ctx)
	m.ready.Store(true)
	m.logger.Info("monitor started",
		"session_id", m.cfg.SessionID,
		"mode", string(m.mode.Mode()),
		"clusters", len(m.cfg.AllClusters()),
		"cycle_interval", m.cfg.CycleInterval,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.probeLoop(ctx)
	}()

	ticker := time.NewTicker(m.cfg.CycleInterval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			m.shutdown()
			return ctx.Err()
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// startup probes the collaborators once and picks the initial mode.
func (m *Monitor) startup(ctx context.Context) {
	if m.enhanced != nil && m.probeCollaborators(ctx) == nil {
		m.mode.Promote("collaborators reachable at startup")
		m.applyMode(ModeEnhanced)
		m.reloadRules()
		return
	}
	m.applyMode(ModeFallback)
	if m.enhanced == nil {
		m.logger.Warn("no cache or store configured, running in fallback mode")
	} else {
		m.logger.Warn("collaborators unreachable at startup, running in fallback mode")
	}
}

func (m *Monitor) shutdown() {
	// Drain grace lets in-flight sink deliveries finish; cycles already
	// stopped when we get here.
	time.Sleep(min(m.cfg.ShutdownGrace, 2*time.Second))
	m.logger.Info("monitor stopped", "cycles", m.cycle.Load(), "uptime", time.Since(m.startedAt).Round(time.Second))
}

// runCycle executes one collection cycle under the cycle-interval deadline.
func (m *Monitor) runCycle(ctx context.Context) {
	cycle := m.cycle.Add(1)
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, m.cfg.CycleInterval)
	defer cancel()

	clusters := m.cfg.AllClusters()
	var locked []string
	if m.mode.Mode() == ModeEnhanced && m.locks != nil {
		clusters, locked = m.acquireCollectLocks(cctx, clusters)
	}
	batch := m.collector.CollectMany(cctx, clusters, cycle)
	m.releaseCollectLocks(cctx, locked)

	sink := m.currentSink()
	deliveryFailed := false
	for _, snap := range batch.Snapshots {
		m.hist.Record(snap)
		if m.metrics != nil {
			m.metrics.HistorySnapshots.WithLabelValues(snap.ClusterName).Set(float64(m.hist.Len(snap.ClusterName)))
		}
		m.engine.Evaluate(cctx, snap)

		if err := sink.DeliverSnapshot(cctx, snap); err != nil {
			deliveryFailed = true
			m.logger.Warn("snapshot delivery failed", "sink", sink.Name(), "cluster", snap.ClusterName, "error", err)
		}
	}

	groups := m.rollupGroups(batch.Snapshots)
	ev := CycleEvent{
		SessionID: m.cfg.SessionID,
		Cycle:     cycle,
		Timestamp: m.clock.Now().UnixMilli(),
		Mode:      m.mode.Mode(),
		Succeeded: batch.Succeeded,
		Total:     batch.Total,
		Groups:    groups,
	}
	if err := sink.DeliverCycle(cctx, ev, m.buildDashboard(batch.Snapshots, groups)); err != nil {
		deliveryFailed = true
		m.logger.Warn("cycle delivery failed", "sink", sink.Name(), "error", err)
	}

	m.accountCycle(deliveryFailed)
	if m.metrics != nil {
		m.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if deliveryFailed || batch.Succeeded < batch.Total {
			outcome = "degraded"
		}
		m.metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	}
}

// acquireCollectLocks takes the per-cluster locks before collection. A
// cluster whose lock is held elsewhere is skipped for this cycle; a lock
// backend error fails open and the cluster is collected anyway.
func (m *Monitor) acquireCollectLocks(ctx context.Context, clusters []string) (collect, locked []string) {
	for _, cl := range clusters {
		ok, err := m.locks.TryCollectLock(ctx, cl)
		if err != nil {
			m.logger.Warn("collect lock unavailable, collecting anyway", "cluster", cl, "error", err)
			collect = append(collect, cl)
			continue
		}
		if !ok {
			m.logger.Info("collect lock held elsewhere, skipping cluster this cycle", "cluster", cl)
			continue
		}
		collect = append(collect, cl)
		locked = append(locked, cl)
	}
	return collect, locked
}

func (m *Monitor) releaseCollectLocks(ctx context.Context, locked []string) {
	for _, cl := range locked {
		if err := m.locks.ReleaseCollectLock(ctx, cl); err != nil {
			m.logger.Debug("collect lock release failed", "cluster", cl, "error", err)
		}
	}
}

// accountCycle feeds the mode machine with the cycle's delivery outcome.
func (m *Monitor) accountCycle(deliveryFailed bool) {
	if !deliveryFailed {
		m.mode.RecordSuccess()
	} else if m.mode.RecordFailure("persistent collaborators unavailable") {
		m.logger.Error("demoting to fallback mode",
			"consecutive_failures", m.mode.ConsecutiveFailures())
		m.errs.Report(errors.MonitorError{
			Code:      errors.ErrModeTransitionFailed,
			Message:   "demoted to fallback after consecutive delivery failures",
			Component: "monitor",
			Timestamp: m.clock.Now().UnixMilli(),
		})
		m.applyMode(ModeFallback)
	}
	if m.metrics != nil {
		m.metrics.ConsecutiveFailures.Set(float64(m.mode.ConsecutiveFailures()))
	}
}

// applyMode swaps the cycle sink, the alert sink chain, and the cooldown
// backend to match the mode.
func (m *Monitor) applyMode(mode Mode) {
	if mode == ModeEnhanced && m.enhanced != nil {
		m.engine.SetSinks(m.enhancedAlertSinks...)
		m.engine.SetCooldownStore(m.redisCooldown)
		if m.metrics != nil {
			m.metrics.Mode.Set(1)
		}
		return
	}
	m.engine.SetSinks(m.fallbackAlertSinks...)
	m.engine.SetCooldownStore(m.memCooldown)
	if m.metrics != nil {
		m.metrics.Mode.Set(0)
	}
}

// currentSink returns the cycle sink for the active mode.
func (m *Monitor) currentSink() Sink {
	if m.mode.Mode() == ModeEnhanced && m.enhanced != nil {
		return m.enhanced
	}
	return m.fallback
}

// rollupGroups aggregates the configured groups out of this cycle's
// snapshots.
func (m *Monitor) rollupGroups(snaps []model.ClusterSnapshot) []model.GroupSnapshot {
	byName := make(map[string]model.ClusterSnapshot, len(snaps))
	for _, s := range snaps {
		byName[s.ClusterName] = s
	}

	names := make([]string, 0, len(m.cfg.Groups))
	for g := range m.cfg.Groups {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]model.GroupSnapshot, 0, len(names))
	for _, g := range names {
		var members []model.ClusterSnapshot
		for _, cl := range m.cfg.Groups[g] {
			if s, ok := byName[cl]; ok {
				members = append(members, s)
			}
		}
		gs := aggregate.Group(g, members)
		m.hist.RecordGroup(gs)
		out = append(out, gs)
	}
	return out
}

func (m *Monitor) buildDashboard(snaps []model.ClusterSnapshot, groups []model.GroupSnapshot) DashboardPayload {
	clusters := make(map[string]model.ClusterSnapshot, len(snaps))
	for _, s := range snaps {
		clusters[s.ClusterName] = s
	}
	return DashboardPayload{
		GeneratedAt: m.clock.Now().UnixMilli(),
		Mode:        m.mode.Mode(),
		Clusters:    clusters,
		Groups:      groups,
		Summary:     buildSummary(snaps),
		Alerts:      m.engine.Summary(),
	}
}

// probeLoop runs the periodic maintenance work. Probe ticks drive re-init
// while in fallback, prune while enhanced, and expiry sweeps in both modes;
// rule reload runs on its own interval whenever a store is configured.
func (m *Monitor) probeLoop(ctx context.Context) {
	probe := time.NewTicker(m.cfg.ProbeInterval)
	defer probe.Stop()
	reload := time.NewTicker(m.cfg.RuleReloadInterval)
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload.C:
			m.reloadRules()
		case <-probe.C:
			if m.mode.Mode() == ModeFallback && m.enhanced != nil {
				m.probe(ctx)
			} else if m.mode.Mode() == ModeEnhanced {
				m.pruneEnhanced(ctx)
			}
			m.engine.SweepExpired(model.DefaultAlertRetention)
			m.memCooldown.Sweep()
		}
	}
}

// probe re-checks the collaborators and promotes back to enhanced mode on
// success. Promotion never happens anywhere else.
func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.cfg.CollectTimeout)
	defer cancel()

	if err := m.probeCollaborators(pctx); err != nil {
		if m.metrics != nil {
			m.metrics.ProbesTotal.WithLabelValues("failure").Inc()
		}
		m.logger.Info("re-init probe failed, staying in fallback mode", "error", err)
		return
	}
	if m.metrics != nil {
		m.metrics.ProbesTotal.WithLabelValues("success").Inc()
	}
	if m.mode.Promote("re-init probe succeeded") {
		m.logger.Info("promoted to enhanced mode")
		m.applyMode(ModeEnhanced)
		m.reloadRules()
	}
}

func (m *Monitor) probeCollaborators(ctx context.Context) error {
	if err := m.cache.Ping(ctx); err != nil {
		return err
	}
	return m.store.Ping()
}

// reloadRules refreshes the rule set from the store. An empty or broken
// store keeps the current rules.
func (m *Monitor) reloadRules() {
	if m.store == nil {
		return
	}
	loaded, err := m.store.LoadRules()
	if err != nil {
		m.errs.Report(errors.MonitorError{
			Code:      errors.ErrRuleLoadFailed,
			Message:   err.Error(),
			Component: "monitor",
			Timestamp: m.clock.Now().UnixMilli(),
			Err:       err,
		})
		m.logger.Warn("rule reload failed, keeping current rules", "error", err)
		return
	}
	if len(loaded) == 0 {
		return
	}
	if err := m.set.Replace(loaded); err != nil {
		m.logger.Warn("stored rules invalid, keeping current rules", "error", err)
		return
	}
	m.logger.Info("rules reloaded from store", "count", len(loaded))
}

// pruneEnhanced trims aged rows out of the cache and store.
func (m *Monitor) pruneEnhanced(ctx context.Context) {
	cutoff := m.clock.Now().Add(-model.DefaultAlertRetention)
	if n, err := m.cache.PruneAlerts(ctx, cutoff); err != nil {
		m.logger.Warn("cached alert prune failed", "error", err)
	} else if n > 0 {
		m.logger.Debug("pruned cached alerts", "count", n)
	}
	if err := m.store.PruneSnapshots(m.clock.Now().Add(-snapshotRetention)); err != nil {
		m.logger.Warn("metric row prune failed", "error", err)
	}
}

// Report assembles the full monitoring report from the latest snapshots.
func (m *Monitor) Report() Report {
	snaps := m.hist.LatestAll()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ClusterName < snaps[j].ClusterName })

	alerts := m.engine.Summary()
	return Report{
		Timestamp:       m.clock.Now().UnixMilli(),
		SessionID:       m.cfg.SessionID,
		Mode:            m.mode.Mode(),
		Summary:         buildSummary(snaps),
		Performance:     analyzePerformance(snaps),
		Alerts:          alerts,
		Recommendations: recommendations(snaps, alerts),
		Clusters:        snaps,
		ActiveErrors:    m.errs.GetActiveErrors(),
	}
}

// ActiveErrorCodes returns the deduplicated codes of errors reported within
// the expiry window, for the health endpoint.
func (m *Monitor) ActiveErrorCodes() []string {
	return m.errs.GetActiveErrorCodes()
}

// GroupStatus returns the latest rollup for one group.
func (m *Monitor) GroupStatus(groupID string) (model.GroupSnapshot, bool) {
	return m.hist.Group(groupID)
}

// Groups returns the latest rollup of every configured group.
func (m *Monitor) Groups() []model.GroupSnapshot {
	gs := m.hist.Groups()
	sort.Slice(gs, func(i, j int) bool { return gs[i].GroupID < gs[j].GroupID })
	return gs
}

// ActiveAlerts proxies the engine's active view.
func (m *Monitor) ActiveAlerts(filter model.AlertFilter) []model.Alert {
	return m.engine.Active(filter)
}

// AlertSummary proxies the engine's summary view.
func (m *Monitor) AlertSummary() model.AlertSummary {
	return m.engine.Summary()
}

// AcknowledgeAlert marks an active alert as seen by an operator and persists
// the flag when the store is available.
func (m *Monitor) AcknowledgeAlert(ctx context.Context, id string) bool {
	if !m.engine.Acknowledge(id) {
		return false
	}
	if m.store != nil {
		if err := m.store.AcknowledgeAlert(id); err != nil {
			m.logger.Warn("alert acknowledged in memory only", "alert_id", id, "error", err)
		}
	}
	m.logger.Info("alert acknowledged", "alert_id", id)
	return true
}

// ResolveAlert resolves an active alert, persists the resolution, and
// announces it on the resolved channel when the cache is reachable.
func (m *Monitor) ResolveAlert(ctx context.Context, id string) bool {
	a, ok := m.engine.Resolve(ctx, id)
	if !ok {
		return false
	}
	if m.store != nil {
		if err := m.store.ResolveAlert(id); err != nil {
			m.logger.Warn("alert resolved in memory only", "alert_id", id, "error", err)
		}
	}
	if m.cache != nil && m.mode.Mode() == ModeEnhanced {
		if err := m.cache.PublishAlertResolved(ctx, a); err != nil {
			m.logger.Warn("alert resolution not announced", "alert_id", id, "error", err)
		}
	}
	m.logger.Info("alert resolved", "alert_id", id, "rule", a.RuleName, "cluster", a.ClusterName)
	return true
}

// AddRule installs or replaces a rule at runtime and persists it when the
// store is available.
func (m *Monitor) AddRule(r rules.Rule) error {
	if err := m.set.Add(r); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.SaveRules([]rules.Rule{r}); err != nil {
			m.logger.Warn("rule persisted in memory only", "rule", r.Name, "error", err)
		}
	}
	return nil
}

// RemoveRule deletes a rule at runtime and from the store when available.
func (m *Monitor) RemoveRule(name string) bool {
	ok := m.set.Remove(name)
	if ok && m.store != nil {
		if err := m.store.DeleteRule(name); err != nil {
			m.logger.Warn("rule removal not persisted", "rule", name, "error", err)
		}
	}
	return ok
}
