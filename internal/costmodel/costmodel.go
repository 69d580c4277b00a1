// Package costmodel turns utilization and template metadata into power draw
// and dollar cost. All functions are pure.
package costmodel

import "github.com/kcloudops/kcloud-monitor/pkg/model"

// Params are the site-wide cost constants, loaded from config.
type Params struct {
	ElectricityRate float64 // $/kWh
	CoolingOverhead float64 // PUE multiplier applied to raw node draw
}

// DefaultParams match the values the template catalog was calibrated against.
func DefaultParams() Params {
	return Params{
		ElectricityRate: 0.12,
		CoolingOverhead: 1.3,
	}
}

// Estimate is the derived power/cost triple for one snapshot.
type Estimate struct {
	PowerWatts  float64
	CostPerHour float64
	MonthlyCost float64
}

// idleFloor is the fraction of rated power a node draws at zero utilization.
const idleFloor = 0.3

// hoursPerMonth is the flat 30-day month used for monthly projections.
const hoursPerMonth = 24 * 30

// Compute estimates power draw and cost for one cluster snapshot given its
// template profile. Utilization scales node draw linearly from the 30% idle
// floor to rated power; cooling overhead is applied on top, and infra cost
// is charged per worker node regardless of utilization.
func Compute(snap model.ClusterSnapshot, tpl model.TemplateProfile, p Params) Estimate {
	utilization := (snap.CPUUsage + snap.MemoryUsage) / 200.0
	if tpl.HasGPU && snap.GPUUsage > 0 {
		utilization = (snap.CPUUsage + snap.MemoryUsage + snap.GPUUsage) / 300.0
	}

	perNode := tpl.PowerPerNode * (idleFloor + (1-idleFloor)*utilization)
	totalPower := perNode * float64(snap.NodeCount+snap.MasterCount) * p.CoolingOverhead

	powerCost := (totalPower / 1000.0) * p.ElectricityRate
	infraCost := tpl.BaseCostPerHour * float64(snap.NodeCount)

	costPerHour := powerCost + infraCost
	return Estimate{
		PowerWatts:  totalPower,
		CostPerHour: costPerHour,
		MonthlyCost: costPerHour * hoursPerMonth,
	}
}
