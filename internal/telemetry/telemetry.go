// Package telemetry defines the optional utilization source consumed by the
// collector, plus the synthetic estimator used when no real source is
// configured.
package telemetry

import "context"

// Utilization is one cluster's resource usage and workload counts.
type Utilization struct {
	CPUUsage      float64
	MemoryUsage   float64
	GPUUsage      float64
	DiskUsage     float64
	NetworkIOMbps float64

	RunningPods   int
	FailedPods    int
	PendingPods   int
	WorkloadCount int
}

// Source supplies utilization for one cluster. Implementations must label
// their provenance so downstream consumers can tell real measurements from
// estimates.
type Source interface {
	// Utilization returns usage for the named cluster. hasGPU selects the
	// workload profile when the source has to estimate.
	Utilization(ctx context.Context, clusterName string, hasGPU bool) (Utilization, error)
	// Name labels the data source carried on every snapshot.
	Name() string
}
