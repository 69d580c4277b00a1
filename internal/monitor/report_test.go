package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

func reportSnap(name string, status model.ClusterStatus) model.ClusterSnapshot {
	return model.ClusterSnapshot{
		ClusterName:     name,
		Status:          status,
		CPUUsage:        50,
		MemoryUsage:     50,
		HealthScore:     90,
		EfficiencyScore: 60,
		CostPerHour:     5,
		PowerWatts:      800,
	}
}

func TestBuildSummary(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	b := reportSnap("b", model.StatusActive)
	b.HealthScore = 70
	c := reportSnap("c", model.StatusCreating)
	c.HealthScore = 0

	sum := buildSummary([]model.ClusterSnapshot{a, b, c})

	assert.Equal(t, 3, sum.TotalClusters)
	assert.Equal(t, 2, sum.ActiveClusters)
	// Totals include the creating cluster, averages do not.
	assert.InDelta(t, 15.0, sum.TotalCostPerHour, 1e-9)
	assert.InDelta(t, 2400.0, sum.TotalPowerWatts, 1e-9)
	assert.InDelta(t, 80.0, sum.AvgHealthScore, 1e-9)
}

func TestBuildSummaryNoActive(t *testing.T) {
	sum := buildSummary([]model.ClusterSnapshot{reportSnap("a", model.StatusFailed)})
	assert.Zero(t, sum.AvgHealthScore)
	assert.Zero(t, sum.AvgEfficiencyScore)
}

func TestAnalyzePerformanceNoActive(t *testing.T) {
	perf := analyzePerformance([]model.ClusterSnapshot{reportSnap("a", model.StatusDeleting)})
	assert.True(t, perf.NoActiveClusters)
}

func TestAnalyzePerformance(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.CPUUsage = 80
	a.CostPerHour = 12
	a.EfficiencyScore = 35
	a.HealthScore = 85

	b := reportSnap("b", model.StatusActive)
	b.CPUUsage = 20
	b.CostPerHour = 4
	b.EfficiencyScore = 60
	b.HealthScore = 55

	c := reportSnap("c", model.StatusActive)
	c.CPUUsage = 50
	c.HealthScore = 30

	perf := analyzePerformance([]model.ClusterSnapshot{a, b, c})

	assert.False(t, perf.NoActiveClusters)
	assert.InDelta(t, 50.0, perf.CPU.Avg, 1e-9)
	assert.InDelta(t, 80.0, perf.CPU.Max, 1e-9)
	assert.InDelta(t, 20.0, perf.CPU.Min, 1e-9)

	assert.Equal(t, []string{"a"}, perf.CostEfficiency.HighCostClusters)
	assert.Equal(t, []string{"a"}, perf.CostEfficiency.LowEfficiencyClusters)
	assert.Positive(t, perf.CostEfficiency.CostPerPerformance)

	assert.Equal(t, 1, perf.HealthBands.Healthy)
	assert.Equal(t, 1, perf.HealthBands.Warning)
	assert.Equal(t, 1, perf.HealthBands.Critical)
}

func TestAnalyzePerformanceEfficiencyFloor(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.EfficiencyScore = 0
	a.CostPerHour = 8

	// A zero efficiency score divides by the floor of 1, not by zero.
	perf := analyzePerformance([]model.ClusterSnapshot{a})
	assert.InDelta(t, 8.0, perf.CostEfficiency.CostPerPerformance, 1e-9)
}

func TestRecommendationsNoActive(t *testing.T) {
	recs := recommendations(nil, model.AlertSummary{})
	assert.Equal(t, []string{"No active clusters"}, recs)
}

func TestRecommendationsAllNormal(t *testing.T) {
	recs := recommendations([]model.ClusterSnapshot{reportSnap("a", model.StatusActive)}, model.AlertSummary{})
	assert.Equal(t, []string{"All clusters operating normally"}, recs)
}

func TestRecommendationsHighCost(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.CostPerHour = 20
	b := reportSnap("b", model.StatusActive)
	b.CostPerHour = 30

	recs := recommendations([]model.ClusterSnapshot{a, b}, model.AlertSummary{})

	// 30% of $50/hour over a 720-hour month.
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "Optimizing 2 high-cost clusters")
	assert.Contains(t, recs[0], "$10800/month")
}

func TestRecommendationsConsolidation(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.CPUUsage = 10
	b := reportSnap("b", model.StatusActive)
	b.CPUUsage = 15

	recs := recommendations([]model.ClusterSnapshot{a, b}, model.AlertSummary{})
	assert.Contains(t, recs, "Consider consolidating 2 under-utilized clusters")
}

func TestRecommendationsSingleIdleClusterIgnored(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.CPUUsage = 10

	recs := recommendations([]model.ClusterSnapshot{a}, model.AlertSummary{})
	assert.Equal(t, []string{"All clusters operating normally"}, recs)
}

func TestRecommendationsGPU(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.GPUUsage = 20

	recs := recommendations([]model.ClusterSnapshot{a}, model.AlertSummary{})
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "GPU utilization at 20.0%")
}

func TestRecommendationsCriticalAlertsAndHealth(t *testing.T) {
	a := reportSnap("a", model.StatusActive)
	a.HealthScore = 60

	alerts := model.AlertSummary{BySeverity: map[model.Severity]int{model.SeverityCritical: 2}}
	recs := recommendations([]model.ClusterSnapshot{a}, alerts)

	assert.Contains(t, recs, "2 critical alerts require immediate attention")
	assert.Contains(t, recs, "1 clusters show degraded health, schedule preventive checks")
}
