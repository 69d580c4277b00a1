// Package enrichment derives the computed snapshot fields (power, cost,
// scores) from the raw topology and utilization the collector gathered.
package enrichment

import (
	"log/slog"
	"time"

	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Enricher fills in derived fields on a snapshot. Enrichers run in the order
// they were registered; the score enricher reads the power figures the cost
// enricher wrote, so ordering is part of the contract.
type Enricher interface {
	Name() string
	Enrich(snap *model.ClusterSnapshot) error
}

// Pipeline applies the registered enrichers to each collected snapshot. A
// failing enricher is logged and skipped; the snapshot keeps whatever derived
// fields were computed before the failure.
type Pipeline struct {
	logger    *slog.Logger
	metrics   *observability.Metrics
	enrichers []Enricher
}

// NewPipeline builds a pipeline over the given enrichers. logger may be nil.
func NewPipeline(logger *slog.Logger, metrics *observability.Metrics, enrichers ...Enricher) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger.With("component", "enrichment"),
		metrics:   metrics,
		enrichers: enrichers,
	}
}

// Run enriches the snapshot in place and reports how many enrichers failed.
func (p *Pipeline) Run(snap *model.ClusterSnapshot) int {
	failed := 0
	for _, e := range p.enrichers {
		start := time.Now()
		err := e.Enrich(snap)
		if p.metrics != nil {
			p.metrics.EnricherDuration.WithLabelValues(e.Name()).
				Observe(time.Since(start).Seconds())
		}
		if err != nil {
			failed++
			p.logger.Warn("enricher failed",
				"enricher", e.Name(), "cluster", snap.ClusterName, "error", err)
		}
	}
	return failed
}
