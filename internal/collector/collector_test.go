package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcloudops/kcloud-monitor/internal/config"
	"github.com/kcloudops/kcloud-monitor/internal/controlplane"
	"github.com/kcloudops/kcloud-monitor/internal/costmodel"
	"github.com/kcloudops/kcloud-monitor/internal/enrichment"
	"github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/internal/telemetry"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

type fakeControlPlane struct {
	clusters map[string]controlplane.Cluster
	failing  map[string]error
}

func (f *fakeControlPlane) GetCluster(_ context.Context, name string) (controlplane.Cluster, error) {
	if err, ok := f.failing[name]; ok {
		return controlplane.Cluster{}, err
	}
	c, ok := f.clusters[name]
	if !ok {
		return controlplane.Cluster{}, controlplane.ErrNotFound
	}
	return c, nil
}

func (f *fakeControlPlane) ListClusters(context.Context) ([]controlplane.Cluster, error) {
	out := make([]controlplane.Cluster, 0, len(f.clusters))
	for _, c := range f.clusters {
		out = append(out, c)
	}
	return out, nil
}

type fixedTelemetry struct {
	util telemetry.Utilization
	err  error
}

func (f *fixedTelemetry) Utilization(context.Context, string, bool) (telemetry.Utilization, error) {
	return f.util, f.err
}

func (f *fixedTelemetry) Name() string { return model.SourceTelemetry }

func activeCluster(name, templateID string) controlplane.Cluster {
	return controlplane.Cluster{
		Name:         name,
		Status:       model.StatusActive,
		HealthStatus: "HEALTHY",
		NodeCount:    3,
		MasterCount:  1,
		TemplateID:   templateID,
		APIAddress:   "https://10.0.0.1:6443",
	}
}

func newTestCollector(cp controlplane.ControlPlane, src telemetry.Source) *Collector {
	templates := config.Templates()
	pipeline := enrichment.NewPipeline(nil, nil,
		enrichment.NewCostEnricher(templates, config.DefaultTemplateID, costmodel.DefaultParams()),
		enrichment.NewScoreEnricher(),
	)
	cfg := &config.Config{
		SessionID:          "test-session",
		CollectTimeout:     5 * time.Second,
		CollectConcurrency: 4,
	}
	errs := errors.NewErrorCollector(errors.RealClock{})
	return New(cp, src, templates, pipeline, errors.RealClock{}, errs, nil, cfg)
}

func TestCollectActiveCluster(t *testing.T) {
	cp := &fakeControlPlane{clusters: map[string]controlplane.Cluster{
		"prod-a": activeCluster("prod-a", "prod-k8s-template"),
	}}
	src := &fixedTelemetry{util: telemetry.Utilization{
		CPUUsage:    55,
		MemoryUsage: 65,
		RunningPods: 12,
		FailedPods:  1,
	}}
	c := newTestCollector(cp, src)

	snap := c.Collect(context.Background(), "prod-a", 1700000000000, 3)

	assert.Equal(t, "prod-a", snap.ClusterName)
	assert.Equal(t, "test-session_prod-a_3", snap.CollectionID)
	assert.Equal(t, int64(1700000000000), snap.Timestamp)
	assert.Equal(t, uint64(3), snap.Cycle)
	assert.Equal(t, model.StatusActive, snap.Status)
	assert.Equal(t, 3, snap.NodeCount)
	assert.Equal(t, 55.0, snap.CPUUsage)
	assert.Equal(t, model.SourceTelemetry, snap.DataSource)

	// Enrichment ran: power, cost, and scores are derived.
	assert.Positive(t, snap.PowerWatts)
	assert.Positive(t, snap.CostPerHour)
	assert.InDelta(t, snap.CostPerHour*720, snap.MonthlyCost, 1e-9)
	assert.Equal(t, 85.0, snap.HealthScore) // one failed pod
	assert.Positive(t, snap.EfficiencyScore)
}

func TestCollectNonActiveClusterZeroed(t *testing.T) {
	cluster := activeCluster("edge-1", "dev-k8s-template")
	cluster.Status = model.StatusCreating
	cp := &fakeControlPlane{clusters: map[string]controlplane.Cluster{"edge-1": cluster}}
	src := &fixedTelemetry{util: telemetry.Utilization{CPUUsage: 99}}
	c := newTestCollector(cp, src)

	snap := c.Collect(context.Background(), "edge-1", 1, 1)

	// Telemetry is never consulted for a non-running cluster.
	assert.Equal(t, model.StatusCreating, snap.Status)
	assert.Zero(t, snap.CPUUsage)
	assert.Zero(t, snap.RunningPods)
	assert.Zero(t, snap.HealthScore)
	assert.Zero(t, snap.EfficiencyScore)
	assert.Equal(t, model.SourceControlPlane, snap.DataSource)

	// Provisioned nodes still draw idle power.
	assert.Positive(t, snap.PowerWatts)
}

func TestCollectUnknownTemplateFallsBack(t *testing.T) {
	cluster := activeCluster("prod-a", "retired-template")
	cp := &fakeControlPlane{clusters: map[string]controlplane.Cluster{"prod-a": cluster}}
	c := newTestCollector(cp, &fixedTelemetry{util: telemetry.Utilization{CPUUsage: 50, MemoryUsage: 50}})

	snap := c.Collect(context.Background(), "prod-a", 1, 1)
	assert.Equal(t, "retired-template", snap.TemplateID)
	assert.Positive(t, snap.PowerWatts)
}

func TestCollectClampsUtilization(t *testing.T) {
	cp := &fakeControlPlane{clusters: map[string]controlplane.Cluster{
		"prod-a": activeCluster("prod-a", "prod-k8s-template"),
	}}
	src := &fixedTelemetry{util: telemetry.Utilization{CPUUsage: 140, MemoryUsage: -5}}
	c := newTestCollector(cp, src)

	snap := c.Collect(context.Background(), "prod-a", 1, 1)
	assert.Equal(t, 100.0, snap.CPUUsage)
	assert.Equal(t, 0.0, snap.MemoryUsage)
}

func TestCollectFailureYieldsErrorSnapshot(t *testing.T) {
	cp := &fakeControlPlane{failing: map[string]error{"gone": controlplane.ErrNotFound}}
	c := newTestCollector(cp, &fixedTelemetry{})

	snap := c.Collect(context.Background(), "gone", 42, 7)

	assert.Equal(t, "gone", snap.ClusterName)
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "error_gone_7", snap.CollectionID)
	assert.Equal(t, int64(42), snap.Timestamp)
	assert.Equal(t, "ERROR", snap.HealthStatus)
	assert.Equal(t, model.SourceError, snap.DataSource)
	assert.Zero(t, snap.CostPerHour)
}

func TestCollectTelemetryFailureYieldsErrorSnapshot(t *testing.T) {
	cp := &fakeControlPlane{clusters: map[string]controlplane.Cluster{
		"prod-a": activeCluster("prod-a", "prod-k8s-template"),
	}}
	c := newTestCollector(cp, &fixedTelemetry{err: fmt.Errorf("scrape timeout")})

	snap := c.Collect(context.Background(), "prod-a", 1, 1)
	assert.Equal(t, model.StatusError, snap.Status)
}

func TestCollectManyPartialFailure(t *testing.T) {
	cp := &fakeControlPlane{
		clusters: map[string]controlplane.Cluster{
			"a": activeCluster("a", "prod-k8s-template"),
			"c": activeCluster("c", "dev-k8s-template"),
		},
		failing: map[string]error{"b": fmt.Errorf("api timeout")},
	}
	c := newTestCollector(cp, &fixedTelemetry{util: telemetry.Utilization{CPUUsage: 40, MemoryUsage: 40}})

	res := c.CollectMany(context.Background(), []string{"a", "b", "c"}, 9)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Snapshots, 3)

	// Request order is preserved and the failing cluster still yields a
	// snapshot.
	assert.Equal(t, "a", res.Snapshots[0].ClusterName)
	assert.Equal(t, "b", res.Snapshots[1].ClusterName)
	assert.Equal(t, "c", res.Snapshots[2].ClusterName)
	assert.Equal(t, model.StatusError, res.Snapshots[1].Status)

	// All snapshots of one cycle share the logical timestamp.
	ts := res.Snapshots[0].Timestamp
	for _, s := range res.Snapshots {
		assert.Equal(t, ts, s.Timestamp)
		assert.Equal(t, uint64(9), s.Cycle)
	}
}
