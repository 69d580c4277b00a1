package enrichment

import (
	"github.com/kcloudops/kcloud-monitor/internal/score"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// ScoreEnricher fills the health and efficiency scores. It must run after
// the cost enricher because efficiency depends on power draw.
type ScoreEnricher struct{}

// NewScoreEnricher creates the score enricher.
func NewScoreEnricher() *ScoreEnricher { return &ScoreEnricher{} }

// Name implements Enricher.
func (e *ScoreEnricher) Name() string { return "score" }

// Enrich implements Enricher.
func (e *ScoreEnricher) Enrich(snap *model.ClusterSnapshot) error {
	snap.HealthScore = score.Health(*snap)
	snap.EfficiencyScore = score.Efficiency(*snap)
	return nil
}
