package costmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

var testTemplate = model.TemplateProfile{
	TemplateID:      "general-medium",
	BaseCostPerHour: 0.5,
	PowerPerNode:    400,
}

func TestComputeIdleFloor(t *testing.T) {
	snap := model.ClusterSnapshot{
		Status:      model.StatusActive,
		NodeCount:   2,
		MasterCount: 1,
	}
	est := Compute(snap, testTemplate, DefaultParams())

	// Zero utilization still draws 30% of rated power per node, times PUE:
	// 400 * 0.3 * 3 * 1.3 = 468W.
	assert.InDelta(t, 468.0, est.PowerWatts, 1e-9)
}

func TestComputeUtilizationScalesLinearly(t *testing.T) {
	snap := model.ClusterSnapshot{
		Status:      model.StatusActive,
		NodeCount:   1,
		CPUUsage:    100,
		MemoryUsage: 100,
	}
	est := Compute(snap, testTemplate, Params{ElectricityRate: 0.12, CoolingOverhead: 1.0})

	// Full utilization draws rated power.
	assert.InDelta(t, 400.0, est.PowerWatts, 1e-9)

	snap.CPUUsage = 50
	snap.MemoryUsage = 50
	est = Compute(snap, testTemplate, Params{ElectricityRate: 0.12, CoolingOverhead: 1.0})

	// Halfway between the 120W idle floor and 400W rated.
	assert.InDelta(t, 260.0, est.PowerWatts, 1e-9)
}

func TestComputeGPUUtilizationFactor(t *testing.T) {
	gpuTemplate := testTemplate
	gpuTemplate.HasGPU = true

	snap := model.ClusterSnapshot{
		Status:      model.StatusActive,
		NodeCount:   1,
		CPUUsage:    30,
		MemoryUsage: 30,
		GPUUsage:    90,
	}

	withGPU := Compute(snap, gpuTemplate, Params{CoolingOverhead: 1.0})
	withoutGPU := Compute(snap, testTemplate, Params{CoolingOverhead: 1.0})

	// GPU load raises the utilization average from 30% to 50%.
	assert.Greater(t, withGPU.PowerWatts, withoutGPU.PowerWatts)
	assert.InDelta(t, 400*(0.3+0.7*0.5), withGPU.PowerWatts, 1e-9)

	// A GPU template with no reported GPU load falls back to cpu/mem only.
	snap.GPUUsage = 0
	idleGPU := Compute(snap, gpuTemplate, Params{CoolingOverhead: 1.0})
	assert.InDelta(t, withoutGPU.PowerWatts, idleGPU.PowerWatts, 1e-9)
}

func TestComputeCostComponents(t *testing.T) {
	snap := model.ClusterSnapshot{
		Status:      model.StatusActive,
		NodeCount:   4,
		MasterCount: 1,
		CPUUsage:    50,
		MemoryUsage: 50,
	}
	p := DefaultParams()
	est := Compute(snap, testTemplate, p)

	powerCost := (est.PowerWatts / 1000.0) * p.ElectricityRate
	infraCost := testTemplate.BaseCostPerHour * 4

	assert.InDelta(t, powerCost+infraCost, est.CostPerHour, 1e-9)
	assert.InDelta(t, est.CostPerHour*720, est.MonthlyCost, 1e-9)

	// Infra cost is charged per worker, never per master.
	assert.GreaterOrEqual(t, est.CostPerHour, infraCost)
}

func TestComputeZeroNodes(t *testing.T) {
	est := Compute(model.ClusterSnapshot{Status: model.StatusActive}, testTemplate, DefaultParams())
	assert.Equal(t, 0.0, est.PowerWatts)
	assert.Equal(t, 0.0, est.CostPerHour)
	assert.Equal(t, 0.0, est.MonthlyCost)
}
