// Package history keeps the in-process record of recent observations: the
// latest snapshot per cluster and a bounded most-recent-first series. It is
// the read path for the debug endpoints and the only history available in
// fallback mode.
package history

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Ring is a generic, concurrency-safe, bounded series. Index 0 is the most
// recent entry; appending beyond the limit drops the oldest.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

// NewRing creates an empty ring holding at most limit entries.
func NewRing[T any](limit int) *Ring[T] {
	if limit < 1 {
		limit = 1
	}
	return &Ring[T]{limit: limit}
}

// Push prepends a value, evicting the oldest entry when full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	r.items = append([]T{v}, r.items...)
	if len(r.items) > r.limit {
		r.items = r.items[:r.limit]
	}
	r.mu.Unlock()
}

// Recent returns up to n entries, most recent first. n <= 0 returns all.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.items) {
		n = len(r.items)
	}
	out := make([]T, n)
	copy(out, r.items[:n])
	return out
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// TrimTo drops all but the n most recent entries.
func (r *Ring[T]) TrimTo(n int) {
	if n < 1 {
		n = 1
	}
	r.mu.Lock()
	if len(r.items) > n {
		r.items = r.items[:n:n]
	}
	r.mu.Unlock()
}

// History aggregates per-cluster snapshot series and the latest group
// rollups. Each cluster gets its own ring so writers for different clusters
// do not contend.
type History struct {
	limit int

	mu       sync.RWMutex
	clusters map[string]*Ring[model.ClusterSnapshot]

	latest      sync.Map // cluster name -> model.ClusterSnapshot
	groups      sync.Map // group ID -> model.GroupSnapshot
	lastUpdated atomic.Int64
}

// New creates a History keeping at most limit snapshots per cluster.
func New(limit int) *History {
	h := &History{
		limit:    limit,
		clusters: make(map[string]*Ring[model.ClusterSnapshot]),
	}
	h.lastUpdated.Store(time.Now().UnixMilli())
	return h
}

// Record stores a snapshot as both the cluster's latest and the newest entry
// of its series.
func (h *History) Record(snap model.ClusterSnapshot) {
	h.ring(snap.ClusterName).Push(snap)
	h.latest.Store(snap.ClusterName, snap)
	h.lastUpdated.Store(time.Now().UnixMilli())
}

// RecordGroup stores a group rollup, replacing the previous cycle's.
func (h *History) RecordGroup(gs model.GroupSnapshot) {
	h.groups.Store(gs.GroupID, gs)
	h.lastUpdated.Store(time.Now().UnixMilli())
}

// Latest returns the most recent snapshot for a cluster.
func (h *History) Latest(clusterName string) (model.ClusterSnapshot, bool) {
	v, ok := h.latest.Load(clusterName)
	if !ok {
		return model.ClusterSnapshot{}, false
	}
	return v.(model.ClusterSnapshot), true
}

// LatestAll returns the most recent snapshot of every known cluster.
func (h *History) LatestAll() []model.ClusterSnapshot {
	var out []model.ClusterSnapshot
	h.latest.Range(func(_, v any) bool {
		out = append(out, v.(model.ClusterSnapshot))
		return true
	})
	return out
}

// Recent returns up to n snapshots for a cluster, most recent first.
func (h *History) Recent(clusterName string, n int) []model.ClusterSnapshot {
	h.mu.RLock()
	r, ok := h.clusters[clusterName]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.Recent(n)
}

// Group returns the latest rollup for a group.
func (h *History) Group(groupID string) (model.GroupSnapshot, bool) {
	v, ok := h.groups.Load(groupID)
	if !ok {
		return model.GroupSnapshot{}, false
	}
	return v.(model.GroupSnapshot), true
}

// Groups returns the latest rollup of every known group.
func (h *History) Groups() []model.GroupSnapshot {
	var out []model.GroupSnapshot
	h.groups.Range(func(_, v any) bool {
		out = append(out, v.(model.GroupSnapshot))
		return true
	})
	return out
}

// Len returns the number of stored snapshots for a cluster.
func (h *History) Len(clusterName string) int {
	h.mu.RLock()
	r, ok := h.clusters[clusterName]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.Len()
}

// Shed trims every cluster series to keep entries, freeing memory under
// pressure. Latest snapshots and group rollups are untouched.
func (h *History) Shed(keep int) {
	h.mu.RLock()
	rings := make([]*Ring[model.ClusterSnapshot], 0, len(h.clusters))
	for _, r := range h.clusters {
		rings = append(rings, r)
	}
	h.mu.RUnlock()
	for _, r := range rings {
		r.TrimTo(keep)
	}
}

// LastUpdated returns the UnixMilli timestamp of the last write.
func (h *History) LastUpdated() int64 {
	return h.lastUpdated.Load()
}

func (h *History) ring(clusterName string) *Ring[model.ClusterSnapshot] {
	h.mu.RLock()
	r, ok := h.clusters[clusterName]
	h.mu.RUnlock()
	if ok {
		return r
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok = h.clusters[clusterName]; ok {
		return r
	}
	r = NewRing[model.ClusterSnapshot](h.limit)
	h.clusters[clusterName] = r
	return r
}
