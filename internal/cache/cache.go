// Package cache is the Redis fan-out layer: it keeps the shared hot state
// (current snapshots, bounded history, active alerts, dashboard payload)
// and publishes change events for downstream consumers. All state is
// written with TTLs so a crashed monitor leaves nothing stale behind.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Cache wraps an injected Redis client. Construction never touches the
// network; use Ping to verify connectivity.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// New wraps the given client. The client's lifecycle belongs to the caller.
func New(rdb *redis.Client, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}
	return &Cache{rdb: rdb, logger: logger, enc: enc, dec: dec}, nil
}

// Client exposes the underlying Redis client for collaborators built on the
// same connection, like the cooldown store.
func (c *Cache) Client() *redis.Client { return c.rdb }

// Ping verifies the Redis connection. Used by the mode probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutSnapshot writes one cluster snapshot to the hot keys and appends it to
// the compressed history list, then publishes the per-cluster update event.
func (c *Cache) PutSnapshot(ctx context.Context, snap model.ClusterSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}
	compressed := c.enc.EncodeAll(raw, nil)

	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, keyClusterCurrent(snap.ClusterName), raw, ttlClusterCurrent)
	pipe.Set(ctx, keyMetricsLatest(snap.ClusterName), raw, ttlMetricsLatest)
	pipe.LPush(ctx, keyMetricsHistory(snap.ClusterName), compressed)
	pipe.LTrim(ctx, keyMetricsHistory(snap.ClusterName), 0, historyMaxEntries-1)
	pipe.Expire(ctx, keyMetricsHistory(snap.ClusterName), ttlMetricsHistory)
	pipe.SAdd(ctx, keyClusterList(), snap.ClusterName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: put snapshot %s: %w", snap.ClusterName, err)
	}

	if err := c.rdb.Publish(ctx, ChannelClusterMetrics(snap.ClusterName), raw).Err(); err != nil {
		// Publish is best effort; the keys already landed.
		c.logger.Debug("cluster metrics publish failed", "cluster", snap.ClusterName, "error", err)
	}
	return nil
}

// PublishBatch announces a completed collection cycle.
func (c *Cache) PublishBatch(ctx context.Context, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cache: marshal batch event: %w", err)
	}
	if err := c.rdb.Publish(ctx, ChannelMetricsBatch, raw).Err(); err != nil {
		return fmt.Errorf("cache: publish batch event: %w", err)
	}
	return c.rdb.Publish(ctx, ChannelMetricsUpdated, raw).Err()
}

// History returns up to n snapshots for a cluster, most recent first,
// decompressing the stored entries. Corrupt entries are skipped.
func (c *Cache) History(ctx context.Context, cluster string, n int) ([]model.ClusterSnapshot, error) {
	if n <= 0 || n > historyMaxEntries {
		n = historyMaxEntries
	}
	rows, err := c.rdb.LRange(ctx, keyMetricsHistory(cluster), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: history %s: %w", cluster, err)
	}

	out := make([]model.ClusterSnapshot, 0, len(rows))
	for _, row := range rows {
		raw, err := c.dec.DecodeAll([]byte(row), nil)
		if err != nil {
			c.logger.Warn("dropping undecodable history entry", "cluster", cluster, "error", err)
			continue
		}
		var snap model.ClusterSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			c.logger.Warn("dropping unparsable history entry", "cluster", cluster, "error", err)
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// Latest returns the most recent cached snapshot for a cluster.
func (c *Cache) Latest(ctx context.Context, cluster string) (model.ClusterSnapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, keyMetricsLatest(cluster)).Bytes()
	if err == redis.Nil {
		return model.ClusterSnapshot{}, false, nil
	}
	if err != nil {
		return model.ClusterSnapshot{}, false, fmt.Errorf("cache: latest %s: %w", cluster, err)
	}
	var snap model.ClusterSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.ClusterSnapshot{}, false, fmt.Errorf("cache: latest %s: %w", cluster, err)
	}
	return snap, true, nil
}

// StoreAlert indexes a fired alert: scored by raise time in the active-alert
// sorted set, added to the per-cluster and per-severity sets, and kept as a
// standalone detail record for id lookups.
func (c *Cache) StoreAlert(ctx context.Context, a model.Alert) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("cache: marshal alert: %w", err)
	}

	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, keyAlertsActive(), redis.Z{Score: float64(a.RaisedAt), Member: raw})
	pipe.Expire(ctx, keyAlertsActive(), ttlAlertsActive)
	pipe.SAdd(ctx, keyAlertsByCluster(a.ClusterName), a.ID)
	pipe.Expire(ctx, keyAlertsByCluster(a.ClusterName), ttlAlertsActive)
	pipe.SAdd(ctx, keyAlertsBySeverity(string(a.Severity)), a.ID)
	pipe.Expire(ctx, keyAlertsBySeverity(string(a.Severity)), ttlAlertsActive)
	pipe.Set(ctx, keyAlertDetail(a.ID), raw, ttlAlertsActive)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: store alert %s: %w", a.ID, err)
	}

	if err := c.rdb.Publish(ctx, ChannelAlertsNew, raw).Err(); err != nil {
		c.logger.Debug("alert publish failed", "alert_id", a.ID, "error", err)
	}
	return nil
}

// Alert fetches one cached alert by id. The second return is false when the
// detail record is missing or expired.
func (c *Cache) Alert(ctx context.Context, id string) (model.Alert, bool, error) {
	raw, err := c.rdb.Get(ctx, keyAlertDetail(id)).Bytes()
	if err == redis.Nil {
		return model.Alert{}, false, nil
	}
	if err != nil {
		return model.Alert{}, false, fmt.Errorf("cache: alert %s: %w", id, err)
	}
	var a model.Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Alert{}, false, fmt.Errorf("cache: alert %s: %w", id, err)
	}
	return a, true, nil
}

// ActiveAlerts returns cached alerts, newest first.
func (c *Cache) ActiveAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.rdb.ZRevRange(ctx, keyAlertsActive(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: active alerts: %w", err)
	}
	out := make([]model.Alert, 0, len(rows))
	for _, row := range rows {
		var a model.Alert
		if err := json.Unmarshal([]byte(row), &a); err != nil {
			c.logger.Warn("dropping unparsable cached alert", "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// PruneAlerts drops cached alerts raised before the cutoff.
func (c *Cache) PruneAlerts(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := c.rdb.ZRemRangeByScore(ctx, keyAlertsActive(), "-inf",
		fmt.Sprintf("%d", cutoff.UnixMilli())).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: prune alerts: %w", err)
	}
	return int(n), nil
}

// PublishAlertResolved announces an alert resolution.
func (c *Cache) PublishAlertResolved(ctx context.Context, a model.Alert) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("cache: marshal alert: %w", err)
	}
	return c.rdb.Publish(ctx, ChannelAlertsResolved, raw).Err()
}

// PutDashboard caches the pre-rendered dashboard payload for 30 seconds.
func (c *Cache) PutDashboard(ctx context.Context, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cache: marshal dashboard: %w", err)
	}
	return c.rdb.Set(ctx, keyDashboardCache(), raw, ttlDashboard).Err()
}

// TryCollectLock takes the per-cluster collection lock so only one monitor
// instance collects a cluster at a time. The lock self-expires.
func (c *Cache) TryCollectLock(ctx context.Context, cluster string) (bool, error) {
	return c.rdb.SetNX(ctx, keyCollectLock(cluster), time.Now().UTC().Format(time.RFC3339), ttlLock).Result()
}

// ReleaseCollectLock drops the per-cluster collection lock early.
func (c *Cache) ReleaseCollectLock(ctx context.Context, cluster string) error {
	return c.rdb.Del(ctx, keyCollectLock(cluster)).Err()
}
