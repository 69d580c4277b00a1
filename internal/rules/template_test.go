package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

func TestRenderPrecision(t *testing.T) {
	snap := model.ClusterSnapshot{
		ClusterName: "prod-a",
		CostPerHour: 23.456,
		HealthScore: 72.25,
		PowerWatts:  5120.7,
	}

	assert.Equal(t,
		"High cost detected: prod-a - $23.46/hour",
		Render("High cost detected: {cluster_name} - ${cost_per_hour:.2f}/hour", snap))
	assert.Equal(t,
		"Health degraded: prod-a - 72.2/100",
		Render("Health degraded: {cluster_name} - {health_score:.1f}/100", snap))
	assert.Equal(t,
		"High power draw: prod-a - 5121W",
		Render("High power draw: {cluster_name} - {power_consumption_watts:.0f}W", snap))
}

func TestRenderDefaultFormatting(t *testing.T) {
	snap := model.ClusterSnapshot{FailedPods: 3, CPUUsage: 91.5}

	// Whole values render without a fraction, others with one decimal.
	assert.Equal(t, "3 pods", Render("{failed_pods} pods", snap))
	assert.Equal(t, "cpu at 91.5", Render("cpu at {cpu_usage}", snap))
}

func TestRenderStringFields(t *testing.T) {
	snap := model.ClusterSnapshot{
		ClusterName: "edge-1",
		Status:      model.StatusFailed,
		TemplateID:  "gpu-large",
	}

	assert.Equal(t, "edge-1 (gpu-large) is failed",
		Render("{cluster_name} ({template_id}) is {status}", snap))
}

func TestRenderUnknownPlaceholderLeftInPlace(t *testing.T) {
	snap := model.ClusterSnapshot{ClusterName: "a"}
	assert.Equal(t, "a has {uptime_days} days", Render("{cluster_name} has {uptime_days} days", snap))
}

func TestRenderOK(t *testing.T) {
	assert.True(t, renderOK("plain message, no placeholders"))
	assert.True(t, renderOK("{cluster_name}: {cost_per_hour:.2f}"))
	assert.False(t, renderOK("{not_a_field}"))
}
