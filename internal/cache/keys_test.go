package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "kcloud:cluster:prod-a:current", keyClusterCurrent("prod-a"))
	assert.Equal(t, "kcloud:cluster:active_list", keyClusterList())
	assert.Equal(t, "kcloud:metrics:prod-a:latest", keyMetricsLatest("prod-a"))
	assert.Equal(t, "kcloud:metrics:prod-a:history:1h", keyMetricsHistory("prod-a"))
	assert.Equal(t, "kcloud:alerts:active", keyAlertsActive())
	assert.Equal(t, "kcloud:alerts:by_cluster:prod-a", keyAlertsByCluster("prod-a"))
	assert.Equal(t, "kcloud:alerts:by_severity:critical", keyAlertsBySeverity("CRITICAL"))
	assert.Equal(t, "kcloud:alerts:cooldown:high_cost:prod-a", keyAlertCooldown("high_cost", "prod-a"))
	assert.Equal(t, "kcloud:alert:detail:alert-1", keyAlertDetail("alert-1"))
	assert.Equal(t, "kcloud:dashboard:cache", keyDashboardCache())
	assert.Equal(t, "kcloud:lock:metrics:prod-a", keyCollectLock("prod-a"))
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "kcloud:events:alerts:new", ChannelAlertsNew)
	assert.Equal(t, "kcloud:events:metrics:batch", ChannelMetricsBatch)
	assert.Equal(t, "kcloud:events:cluster:prod-a:metrics", ChannelClusterMetrics("prod-a"))
}
