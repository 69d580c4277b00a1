package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

func TestRingPushBounded(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{5, 4, 3}, r.Recent(0))
}

func TestRingRecentLimits(t *testing.T) {
	r := NewRing[int](10)
	r.Push(1)
	r.Push(2)

	assert.Equal(t, []int{2}, r.Recent(1))
	assert.Equal(t, []int{2, 1}, r.Recent(5))
	assert.Empty(t, NewRing[int](10).Recent(3))
}

func TestRingMinimumLimit(t *testing.T) {
	r := NewRing[int](0)
	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{2}, r.Recent(0))
}

func snap(cluster string, cycle uint64) model.ClusterSnapshot {
	return model.ClusterSnapshot{ClusterName: cluster, Cycle: cycle, Status: model.StatusActive}
}

func TestHistoryRecordAndLatest(t *testing.T) {
	h := New(5)
	h.Record(snap("a", 1))
	h.Record(snap("a", 2))

	latest, ok := h.Latest("a")
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.Cycle)

	_, ok = h.Latest("missing")
	assert.False(t, ok)
}

func TestHistoryRecentMostRecentFirst(t *testing.T) {
	h := New(3)
	for i := uint64(1); i <= 5; i++ {
		h.Record(snap("a", i))
	}

	recent := h.Recent("a", 0)
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(5), recent[0].Cycle)
	assert.Equal(t, uint64(3), recent[2].Cycle)
	assert.Equal(t, 3, h.Len("a"))
	assert.Nil(t, h.Recent("missing", 0))
}

func TestHistorySeparatesClusters(t *testing.T) {
	h := New(5)
	h.Record(snap("a", 1))
	h.Record(snap("b", 1))
	h.Record(snap("b", 2))

	assert.Equal(t, 1, h.Len("a"))
	assert.Equal(t, 2, h.Len("b"))
	assert.Len(t, h.LatestAll(), 2)
}

func TestHistoryGroups(t *testing.T) {
	h := New(5)
	h.RecordGroup(model.GroupSnapshot{GroupID: "prod", Cycle: 1})
	h.RecordGroup(model.GroupSnapshot{GroupID: "prod", Cycle: 2})
	h.RecordGroup(model.GroupSnapshot{GroupID: "edge", Cycle: 2})

	g, ok := h.Group("prod")
	require.True(t, ok)
	assert.Equal(t, uint64(2), g.Cycle)

	_, ok = h.Group("missing")
	assert.False(t, ok)
	assert.Len(t, h.Groups(), 2)
}

func TestHistoryLastUpdatedAdvances(t *testing.T) {
	h := New(5)
	before := h.LastUpdated()
	h.Record(snap("a", 1))
	assert.GreaterOrEqual(t, h.LastUpdated(), before)
}

func TestRingTrimTo(t *testing.T) {
	r := NewRing[int](10)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}

	r.TrimTo(3)
	assert.Equal(t, []int{6, 5, 4}, r.Recent(0))

	r.TrimTo(0) // keeps at least one
	assert.Equal(t, []int{6}, r.Recent(0))
}

func TestHistoryShed(t *testing.T) {
	h := New(10)
	for c := uint64(1); c <= 6; c++ {
		h.Record(snap("a", c))
		h.Record(snap("b", c))
	}

	h.Shed(2)

	assert.Equal(t, 2, h.Len("a"))
	assert.Equal(t, 2, h.Len("b"))

	// Latest snapshots survive shedding.
	latest, ok := h.Latest("a")
	require.True(t, ok)
	assert.Equal(t, uint64(6), latest.Cycle)
}
