package cache

import (
	"fmt"
	"strings"
	"time"
)

// Key namespace. Every key this process writes lives under "kcloud:" so the
// shared Redis can be inspected and flushed per subsystem.
const namespace = "kcloud"

func buildKey(parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// Cluster and metric keys.
func keyClusterCurrent(cluster string) string { return buildKey("cluster", cluster, "current") }
func keyClusterList() string                  { return buildKey("cluster", "active_list") }
func keyMetricsLatest(cluster string) string  { return buildKey("metrics", cluster, "latest") }
func keyMetricsHistory(cluster string) string { return buildKey("metrics", cluster, "history", "1h") }

// Alert keys.
func keyAlertsActive() string { return buildKey("alerts", "active") }
func keyAlertsByCluster(cluster string) string {
	return buildKey("alerts", "by_cluster", cluster)
}
func keyAlertsBySeverity(severity string) string {
	return buildKey("alerts", "by_severity", strings.ToLower(severity))
}
func keyAlertCooldown(rule, cluster string) string {
	return buildKey("alerts", "cooldown", rule, cluster)
}
func keyAlertDetail(id string) string { return buildKey("alert", "detail", id) }

// Dashboard and coordination keys.
func keyDashboardCache() string { return buildKey("dashboard", "cache") }
func keyCollectLock(cluster string) string {
	return buildKey("lock", "metrics", cluster)
}

// Pub/sub channels for downstream consumers.
const (
	ChannelAlertsNew      = "kcloud:events:alerts:new"
	ChannelAlertsResolved = "kcloud:events:alerts:resolved"
	ChannelMetricsUpdated = "kcloud:events:metrics:updated"
	ChannelMetricsBatch   = "kcloud:events:metrics:batch"
)

// ChannelClusterMetrics is the per-cluster metric update channel.
func ChannelClusterMetrics(cluster string) string {
	return fmt.Sprintf("kcloud:events:cluster:%s:metrics", cluster)
}

// Expiry tiers. Keys self-expire so a dead monitor leaves no stale state
// behind; every tier outlives at least one collection cycle.
const (
	ttlClusterCurrent = 5 * time.Minute
	ttlMetricsLatest  = 2 * time.Minute
	ttlMetricsHistory = 1 * time.Hour
	ttlAlertsActive   = 24 * time.Hour
	ttlDashboard      = 30 * time.Second
	ttlLock           = 2 * time.Minute
)

// historyMaxEntries bounds the Redis-side history list per cluster.
const historyMaxEntries = 240
