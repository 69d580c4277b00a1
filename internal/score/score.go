// Package score computes the 0-100 health and efficiency scores of a cluster
// snapshot. Both functions are pure and deterministic.
package score

import "github.com/kcloudops/kcloud-monitor/pkg/model"

// EfficiencyScaling converts power efficiency (utilization per kW) into the
// 0-100 efficiency score. The monitoring pipeline uses a single constant for
// both cluster and group scoring.
const EfficiencyScaling = 20.0

// Health scores operational correctness. Non-Active clusters score 0; Active
// clusters start at 100 and lose points for failed pods (15 each), pending
// pods beyond five (10 each), cpu or memory saturation above 90% (20 each),
// and a missing API endpoint (10).
func Health(snap model.ClusterSnapshot) float64 {
	if !snap.Status.IsActive() {
		return 0
	}

	h := 100.0

	h -= float64(snap.FailedPods) * 15
	if snap.PendingPods > 5 {
		h -= float64(snap.PendingPods-5) * 10
	}
	if snap.CPUUsage > 90 {
		h -= 20
	}
	if snap.MemoryUsage > 90 {
		h -= 20
	}
	if snap.APIAddress == "" {
		h -= 10
	}

	return clamp(h)
}

// Efficiency scores resource utilization per kilowatt of draw. Non-Active
// clusters and clusters reporting zero power score 0.
func Efficiency(snap model.ClusterSnapshot) float64 {
	if !snap.Status.IsActive() || snap.PowerWatts <= 0 {
		return 0
	}

	utilization := (snap.CPUUsage + snap.MemoryUsage) / 2
	if snap.GPUUsage > 0 {
		utilization = (snap.CPUUsage + snap.MemoryUsage + snap.GPUUsage) / 3
	}

	powerEfficiency := utilization / (snap.PowerWatts / 1000.0)
	return clamp(powerEfficiency * EfficiencyScaling)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
