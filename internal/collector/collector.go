// Package collector builds ClusterMetricsSnapshots by combining control-plane
// topology, telemetry (or synthetic) utilization, the cost model, and the
// score engine.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kcloudops/kcloud-monitor/internal/config"
	"github.com/kcloudops/kcloud-monitor/internal/controlplane"
	"github.com/kcloudops/kcloud-monitor/internal/enrichment"
	"github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/internal/telemetry"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Collector produces one immutable snapshot per cluster per cycle.
type Collector struct {
	controlPlane controlplane.ControlPlane
	telemetry    telemetry.Source
	templates    map[string]model.TemplateProfile
	pipeline     *enrichment.Pipeline
	clock        errors.Clock
	errs         *errors.ErrorCollector
	metrics      *observability.Metrics

	sessionID   string
	timeout     time.Duration
	concurrency int
}

// New creates a Collector. telemetrySource may be a SyntheticEstimator when
// no real source is configured; it must never be nil. The pipeline derives
// the computed fields (power, cost, scores) on every collected snapshot.
func New(
	cp controlplane.ControlPlane,
	telemetrySource telemetry.Source,
	templates map[string]model.TemplateProfile,
	pipeline *enrichment.Pipeline,
	clock errors.Clock,
	errCollector *errors.ErrorCollector,
	metrics *observability.Metrics,
	cfg *config.Config,
) *Collector {
	return &Collector{
		controlPlane: cp,
		telemetry:    telemetrySource,
		templates:    templates,
		pipeline:     pipeline,
		clock:        clock,
		errs:         errCollector,
		metrics:      metrics,
		sessionID:    cfg.SessionID,
		timeout:      cfg.CollectTimeout,
		concurrency:  cfg.CollectConcurrency,
	}
}

// Collect builds the snapshot for one cluster. It never returns an error:
// any failure degrades to a synthetic StatusError snapshot so callers always
// receive one snapshot per requested cluster. timestamp and cycle are the
// batch's logical stamp, shared by all snapshots of the cycle.
func (c *Collector) Collect(ctx context.Context, name string, timestamp int64, cycle uint64) model.ClusterSnapshot {
	start := c.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	snap, err := c.collect(ctx, name, timestamp, cycle)
	if err != nil {
		c.errs.Report(errors.MonitorError{
			Code:      errors.ErrCollectionFailed,
			Message:   fmt.Sprintf("collection failed for %s: %v", name, err),
			Component: "collector",
			Cluster:   name,
			Timestamp: c.clock.Now().UnixMilli(),
			Err:       err,
		})
		slog.Warn("collection failed, emitting error snapshot", "cluster", name, "error", err)
		snap = c.errorSnapshot(name, timestamp, cycle)
		if c.metrics != nil {
			c.metrics.CollectTotal.WithLabelValues("error").Inc()
		}
	} else if c.metrics != nil {
		c.metrics.CollectTotal.WithLabelValues("ok").Inc()
	}

	snap.ProcessingTimeMS = float64(c.clock.Now().Sub(start)) / float64(time.Millisecond)
	if c.metrics != nil {
		c.metrics.CollectDuration.Observe(c.clock.Now().Sub(start).Seconds())
	}
	return snap
}

func (c *Collector) collect(ctx context.Context, name string, timestamp int64, cycle uint64) (model.ClusterSnapshot, error) {
	cluster, err := c.controlPlane.GetCluster(ctx, name)
	if err != nil {
		return model.ClusterSnapshot{}, err
	}

	snap := model.ClusterSnapshot{
		ClusterName:  name,
		CollectionID: fmt.Sprintf("%s_%s_%d", c.sessionID, name, cycle),
		Timestamp:    timestamp,
		Cycle:        cycle,
		Status:       cluster.Status,
		HealthStatus: cluster.HealthStatus,
		NodeCount:    cluster.NodeCount,
		MasterCount:  cluster.MasterCount,
		TemplateID:   cluster.TemplateID,
		APIAddress:   cluster.APIAddress,
		DataSource:   model.SourceControlPlane,
	}

	tpl := c.template(cluster.TemplateID)

	// Non-Active clusters carry zeroed utilization and scores: no fabricated
	// activity for clusters that are not running.
	if snap.Status.IsActive() {
		util, err := c.telemetry.Utilization(ctx, name, tpl.HasGPU)
		if err != nil {
			return model.ClusterSnapshot{}, fmt.Errorf("telemetry: %w", err)
		}
		snap.CPUUsage = clampPct(util.CPUUsage)
		snap.MemoryUsage = clampPct(util.MemoryUsage)
		snap.GPUUsage = clampPct(util.GPUUsage)
		snap.DiskUsage = clampPct(util.DiskUsage)
		snap.NetworkIOMbps = util.NetworkIOMbps
		snap.RunningPods = util.RunningPods
		snap.FailedPods = util.FailedPods
		snap.PendingPods = util.PendingPods
		snap.WorkloadCount = util.WorkloadCount
		snap.DataSource = c.telemetry.Name()
	}

	c.pipeline.Run(&snap)
	return snap, nil
}

// CollectMany collects all named clusters concurrently with bounded
// parallelism. One cluster's failure never aborts the others; the result
// always holds exactly one snapshot per requested name, in request order.
func (c *Collector) CollectMany(ctx context.Context, names []string, cycle uint64) model.BatchResult {
	timestamp := c.clock.Now().UnixMilli()

	snapshots := make([]model.ClusterSnapshot, len(names))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			snapshots[i] = c.Collect(ctx, name, timestamp, cycle)
		}(i, name)
	}
	wg.Wait()

	result := model.BatchResult{
		Snapshots: snapshots,
		Total:     len(names),
	}
	for _, s := range snapshots {
		if s.Status != model.StatusError {
			result.Succeeded++
		}
	}

	slog.Info("batch collection complete",
		"cycle", cycle,
		"succeeded", result.Succeeded,
		"total", result.Total,
	)
	return result
}

// errorSnapshot is the synthetic snapshot emitted when collection fails.
// All metric fields stay zero and the status is the sentinel StatusError.
func (c *Collector) errorSnapshot(name string, timestamp int64, cycle uint64) model.ClusterSnapshot {
	return model.ClusterSnapshot{
		ClusterName:  name,
		CollectionID: fmt.Sprintf("error_%s_%d", name, cycle),
		Timestamp:    timestamp,
		Cycle:        cycle,
		Status:       model.StatusError,
		HealthStatus: "ERROR",
		TemplateID:   "unknown",
		DataSource:   model.SourceError,
	}
}

func (c *Collector) template(id string) model.TemplateProfile {
	if tpl, ok := c.templates[id]; ok {
		return tpl
	}
	return c.templates[config.DefaultTemplateID]
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
