package monitor

import (
	"fmt"

	"github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// ReportSummary is the fleet-level rollup included in reports and the
// dashboard payload. Averages cover active clusters only.
type ReportSummary struct {
	TotalClusters      int     `json:"total_clusters"`
	ActiveClusters     int     `json:"active_clusters"`
	TotalCostPerHour   float64 `json:"total_cost_per_hour"`
	TotalPowerWatts    float64 `json:"total_power_consumption"`
	AvgHealthScore     float64 `json:"avg_health_score"`
	AvgEfficiencyScore float64 `json:"avg_efficiency_score"`
}

// RangeStats is avg/max/min over active clusters.
type RangeStats struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// CostEfficiency relates spend to the efficiency score.
type CostEfficiency struct {
	CostPerPerformance    float64  `json:"cost_per_performance"`
	HighCostClusters      []string `json:"high_cost_clusters"`
	LowEfficiencyClusters []string `json:"low_efficiency_clusters"`
}

// HealthBands buckets active clusters by health score.
type HealthBands struct {
	Healthy  int `json:"healthy_clusters"`  // > 80
	Warning  int `json:"warning_clusters"`  // 50..80
	Critical int `json:"critical_clusters"` // < 50
}

// Performance is the analysis section of a report.
type Performance struct {
	NoActiveClusters bool           `json:"no_active_clusters,omitempty"`
	CPU              RangeStats     `json:"cpu"`
	Memory           RangeStats     `json:"memory"`
	CostEfficiency   CostEfficiency `json:"cost_efficiency"`
	HealthBands      HealthBands    `json:"health_trends"`
}

// Report is the full monitoring report served by the debug endpoint.
type Report struct {
	Timestamp       int64                   `json:"timestamp"`
	SessionID       string                  `json:"session_id"`
	Mode            Mode                    `json:"mode"`
	Summary         ReportSummary           `json:"summary"`
	Performance     Performance             `json:"performance"`
	Alerts          model.AlertSummary      `json:"alerts"`
	Recommendations []string                `json:"recommendations"`
	Clusters        []model.ClusterSnapshot `json:"clusters"`
	ActiveErrors    []errors.MonitorError   `json:"active_errors"`
}

func buildSummary(snaps []model.ClusterSnapshot) ReportSummary {
	var sum ReportSummary
	sum.TotalClusters = len(snaps)

	var healthTotal, effTotal float64
	for _, s := range snaps {
		sum.TotalCostPerHour += s.CostPerHour
		sum.TotalPowerWatts += s.PowerWatts
		if s.Status.IsActive() {
			sum.ActiveClusters++
			healthTotal += s.HealthScore
			effTotal += s.EfficiencyScore
		}
	}
	if sum.ActiveClusters > 0 {
		sum.AvgHealthScore = healthTotal / float64(sum.ActiveClusters)
		sum.AvgEfficiencyScore = effTotal / float64(sum.ActiveClusters)
	}
	return sum
}

func analyzePerformance(snaps []model.ClusterSnapshot) Performance {
	var active []model.ClusterSnapshot
	for _, s := range snaps {
		if s.Status.IsActive() {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return Performance{NoActiveClusters: true}
	}

	perf := Performance{
		CPU:    rangeStats(active, func(s model.ClusterSnapshot) float64 { return s.CPUUsage }),
		Memory: rangeStats(active, func(s model.ClusterSnapshot) float64 { return s.MemoryUsage }),
	}

	var costPerPerf float64
	for _, s := range active {
		eff := s.EfficiencyScore
		if eff < 1 {
			eff = 1
		}
		costPerPerf += s.CostPerHour / eff

		if s.CostPerHour > 10.0 {
			perf.CostEfficiency.HighCostClusters = append(perf.CostEfficiency.HighCostClusters, s.ClusterName)
		}
		if s.EfficiencyScore < 40.0 {
			perf.CostEfficiency.LowEfficiencyClusters = append(perf.CostEfficiency.LowEfficiencyClusters, s.ClusterName)
		}

		switch {
		case s.HealthScore > 80:
			perf.HealthBands.Healthy++
		case s.HealthScore >= 50:
			perf.HealthBands.Warning++
		default:
			perf.HealthBands.Critical++
		}
	}
	perf.CostEfficiency.CostPerPerformance = costPerPerf / float64(len(active))
	return perf
}

func rangeStats(snaps []model.ClusterSnapshot, get func(model.ClusterSnapshot) float64) RangeStats {
	st := RangeStats{Min: get(snaps[0]), Max: get(snaps[0])}
	var total float64
	for _, s := range snaps {
		v := get(s)
		total += v
		if v > st.Max {
			st.Max = v
		}
		if v < st.Min {
			st.Min = v
		}
	}
	st.Avg = total / float64(len(snaps))
	return st
}

// recommendations derives operator guidance from the latest snapshots and
// the active-alert summary.
func recommendations(snaps []model.ClusterSnapshot, alerts model.AlertSummary) []string {
	var active []model.ClusterSnapshot
	for _, s := range snaps {
		if s.Status.IsActive() {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return []string{"No active clusters"}
	}

	var recs []string

	var highCost []model.ClusterSnapshot
	for _, s := range active {
		if s.CostPerHour > 15.0 {
			highCost = append(highCost, s)
		}
	}
	if len(highCost) > 0 {
		var savings float64
		for _, s := range highCost {
			savings += s.CostPerHour * 0.3
		}
		recs = append(recs, fmt.Sprintf(
			"Optimizing %d high-cost clusters could save $%.0f/month", len(highCost), savings*24*30))
	}

	lowCPU := 0
	for _, s := range active {
		if s.CPUUsage < 20.0 {
			lowCPU++
		}
	}
	if lowCPU > 1 {
		recs = append(recs, fmt.Sprintf(
			"Consider consolidating %d under-utilized clusters", lowCPU))
	}

	var gpuTotal float64
	gpuCount := 0
	for _, s := range active {
		if s.GPUUsage > 0 {
			gpuTotal += s.GPUUsage
			gpuCount++
		}
	}
	if gpuCount > 0 {
		if avg := gpuTotal / float64(gpuCount); avg < 30 {
			recs = append(recs, fmt.Sprintf(
				"GPU utilization at %.1f%%, consider resizing GPU node pools", avg))
		}
	}

	if n := alerts.BySeverity[model.SeverityCritical]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d critical alerts require immediate attention", n))
	}

	unhealthy := 0
	for _, s := range active {
		if s.HealthScore < 70 {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d clusters show degraded health, schedule preventive checks", unhealthy))
	}

	if len(recs) == 0 {
		recs = append(recs, "All clusters operating normally")
	}
	return recs
}
