// Package aggregate folds per-cluster snapshots into group rollups.
package aggregate

import "github.com/kcloudops/kcloud-monitor/pkg/model"

// Group reduces member snapshots into one GroupSnapshot. Totals (nodes, cost,
// power) sum over every member; averages and aggregate scores consider Active
// members only. With zero Active members the averages are reported as 0 and
// NoActiveMembers is set, so consumers never see a division artifact.
func Group(groupID string, snapshots []model.ClusterSnapshot) model.GroupSnapshot {
	g := model.GroupSnapshot{
		GroupID: groupID,
		Members: snapshots,
	}
	if len(snapshots) == 0 {
		g.NoActiveMembers = true
		return g
	}

	// All members share the cycle's logical timestamp.
	g.Timestamp = snapshots[0].Timestamp
	g.Cycle = snapshots[0].Cycle
	g.TotalClusters = len(snapshots)

	var active int
	var cpu, mem, gpu, health, efficiency float64
	for _, s := range snapshots {
		g.TotalNodes += s.NodeCount
		g.TotalCostPerHour += s.CostPerHour
		g.TotalPowerWatts += s.PowerWatts

		if !s.Status.IsActive() {
			continue
		}
		active++
		cpu += s.CPUUsage
		mem += s.MemoryUsage
		gpu += s.GPUUsage
		health += s.HealthScore
		efficiency += s.EfficiencyScore
	}

	g.ActiveClusters = active
	if active == 0 {
		g.NoActiveMembers = true
		return g
	}

	n := float64(active)
	g.AvgCPUUsage = cpu / n
	g.AvgMemoryUsage = mem / n
	g.AvgGPUUsage = gpu / n
	g.AvgHealthScore = health / n
	g.AvgEfficiencyScore = efficiency / n
	return g
}
