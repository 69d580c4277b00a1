package monitor

import (
	"context"
	"log/slog"

	"github.com/kcloudops/kcloud-monitor/internal/cache"
	"github.com/kcloudops/kcloud-monitor/internal/store"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// CycleEvent summarizes one finished collection cycle for fan-out.
type CycleEvent struct {
	SessionID string                `json:"session_id"`
	Cycle     uint64                `json:"cycle"`
	Timestamp int64                 `json:"timestamp"`
	Mode      Mode                  `json:"mode"`
	Succeeded int                   `json:"succeeded"`
	Total     int                   `json:"total"`
	Groups    []model.GroupSnapshot `json:"groups"`
}

// DashboardPayload is the pre-rendered view cached for dashboard consumers.
type DashboardPayload struct {
	GeneratedAt int64                            `json:"generated_at"`
	Mode        Mode                             `json:"mode"`
	Clusters    map[string]model.ClusterSnapshot `json:"clusters"`
	Groups      []model.GroupSnapshot            `json:"groups"`
	Summary     ReportSummary                    `json:"summary"`
	Alerts      model.AlertSummary               `json:"alerts"`
}

// Sink is the per-mode delivery strategy for cycle outputs. The controller
// swaps the whole sink on mode transitions instead of branching on the mode
// inside the cycle.
type Sink interface {
	// Name labels the sink in logs and metrics.
	Name() string

	// DeliverSnapshot fans out one collected snapshot.
	DeliverSnapshot(ctx context.Context, snap model.ClusterSnapshot) error

	// DeliverCycle fans out the cycle summary and dashboard view.
	DeliverCycle(ctx context.Context, ev CycleEvent, dash DashboardPayload) error
}

// EnhancedSink delivers to Redis and the persistent store.
type EnhancedSink struct {
	cache *cache.Cache
	store *store.Store
}

// NewEnhancedSink wires the enhanced delivery chain.
func NewEnhancedSink(c *cache.Cache, s *store.Store) *EnhancedSink {
	return &EnhancedSink{cache: c, store: s}
}

// Name implements Sink.
func (s *EnhancedSink) Name() string { return "enhanced" }

// DeliverSnapshot implements Sink. The cache write and the store write are
// independent; the first error is returned after both ran.
func (s *EnhancedSink) DeliverSnapshot(ctx context.Context, snap model.ClusterSnapshot) error {
	cacheErr := s.cache.PutSnapshot(ctx, snap)
	storeErr := s.store.SaveSnapshot(snap)
	if cacheErr != nil {
		return cacheErr
	}
	return storeErr
}

// DeliverCycle implements Sink.
func (s *EnhancedSink) DeliverCycle(ctx context.Context, ev CycleEvent, dash DashboardPayload) error {
	if err := s.cache.PublishBatch(ctx, ev); err != nil {
		return err
	}
	return s.cache.PutDashboard(ctx, dash)
}

// FallbackSink keeps cycle outputs observable through the log only. The
// in-process history is maintained by the controller in both modes, so
// nothing else is needed here.
type FallbackSink struct {
	logger *slog.Logger
}

// NewFallbackSink wires the fallback delivery chain.
func NewFallbackSink(logger *slog.Logger) *FallbackSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSink{logger: logger}
}

// Name implements Sink.
func (s *FallbackSink) Name() string { return "fallback" }

// DeliverSnapshot implements Sink.
func (s *FallbackSink) DeliverSnapshot(_ context.Context, snap model.ClusterSnapshot) error {
	s.logger.Debug("snapshot collected",
		"cluster", snap.ClusterName,
		"status", string(snap.Status),
		"health_score", snap.HealthScore,
		"cost_per_hour", snap.CostPerHour,
	)
	return nil
}

// DeliverCycle implements Sink.
func (s *FallbackSink) DeliverCycle(_ context.Context, ev CycleEvent, _ DashboardPayload) error {
	s.logger.Info("cycle complete",
		"cycle", ev.Cycle,
		"mode", string(ev.Mode),
		"succeeded", ev.Succeeded,
		"total", ev.Total,
	)
	return nil
}
