package enrichment

import (
	"github.com/kcloudops/kcloud-monitor/internal/costmodel"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// CostEnricher fills the power and cost fields from the template profile
// and the cost model parameters.
type CostEnricher struct {
	templates  map[string]model.TemplateProfile
	defaultTpl string
	params     costmodel.Params
}

// NewCostEnricher creates the cost enricher. Unknown template IDs fall back
// to the named default profile.
func NewCostEnricher(templates map[string]model.TemplateProfile, defaultTpl string, params costmodel.Params) *CostEnricher {
	return &CostEnricher{templates: templates, defaultTpl: defaultTpl, params: params}
}

// Name implements Enricher.
func (e *CostEnricher) Name() string { return "cost" }

// Enrich implements Enricher.
func (e *CostEnricher) Enrich(snap *model.ClusterSnapshot) error {
	est := costmodel.Compute(*snap, e.Template(snap.TemplateID), e.params)
	snap.PowerWatts = est.PowerWatts
	snap.CostPerHour = est.CostPerHour
	snap.MonthlyCost = est.MonthlyCost
	return nil
}

// Template resolves a template ID, falling back to the default profile.
func (e *CostEnricher) Template(id string) model.TemplateProfile {
	if tpl, ok := e.templates[id]; ok {
		return tpl
	}
	return e.templates[e.defaultTpl]
}
