package rules

import (
	"fmt"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Comparison operators.
const (
	OpGT = ">"
	OpGE = ">="
	OpLT = "<"
	OpLE = "<="
	OpEQ = "=="
	OpNE = "!="
)

// Condition is a closed, data-only boolean expression over snapshot fields,
// evaluated by Eval. Exactly one of the comparison form (Field/Op/Value),
// Status, All, Any, or Not may be set. Rules are user-editable, so conditions
// are never executable code; a malformed condition yields an evaluation
// error, isolated per rule by the alert engine.
type Condition struct {
	// Comparison: Field Op Value, e.g. cost_per_hour > 20.
	Field string  `yaml:"field,omitempty" json:"field,omitempty"`
	Op    string  `yaml:"op,omitempty" json:"op,omitempty"`
	Value float64 `yaml:"value,omitempty" json:"value,omitempty"`

	// Status equality, e.g. status == active.
	Status model.ClusterStatus `yaml:"status,omitempty" json:"status,omitempty"`

	// Combinators.
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`
}

// Eval evaluates the condition against a snapshot.
func (c Condition) Eval(snap model.ClusterSnapshot) (bool, error) {
	switch {
	case len(c.All) > 0:
		for _, sub := range c.All {
			ok, err := sub.Eval(snap)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case len(c.Any) > 0:
		for _, sub := range c.Any {
			ok, err := sub.Eval(snap)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case c.Not != nil:
		ok, err := c.Not.Eval(snap)
		return !ok, err

	case c.Status != "":
		return snap.Status == c.Status, nil

	case c.Field != "":
		v, err := FieldValue(snap, c.Field)
		if err != nil {
			return false, err
		}
		return compare(v, c.Op, c.Value)

	default:
		return false, fmt.Errorf("rules: empty condition")
	}
}

// Validate checks the condition tree without a snapshot, so malformed rules
// are rejected at load time rather than on every cycle.
func (c Condition) Validate() error {
	switch {
	case len(c.All) > 0:
		for _, sub := range c.All {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	case len(c.Any) > 0:
		for _, sub := range c.Any {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	case c.Not != nil:
		return c.Not.Validate()
	case c.Status != "":
		return nil
	case c.Field != "":
		if _, err := FieldValue(model.ClusterSnapshot{}, c.Field); err != nil {
			return err
		}
		if _, err := compare(0, c.Op, 0); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("rules: empty condition")
	}
}

func compare(v float64, op string, ref float64) (bool, error) {
	switch op {
	case OpGT:
		return v > ref, nil
	case OpGE:
		return v >= ref, nil
	case OpLT:
		return v < ref, nil
	case OpLE:
		return v <= ref, nil
	case OpEQ:
		return v == ref, nil
	case OpNE:
		return v != ref, nil
	default:
		return false, fmt.Errorf("rules: unknown operator %q", op)
	}
}

// FieldValue resolves a named numeric snapshot field. The name set is the
// closed vocabulary conditions and message templates may reference.
func FieldValue(snap model.ClusterSnapshot, field string) (float64, error) {
	switch field {
	case "cost_per_hour":
		return snap.CostPerHour, nil
	case "estimated_monthly_cost":
		return snap.MonthlyCost, nil
	case "health_score":
		return snap.HealthScore, nil
	case "efficiency_score":
		return snap.EfficiencyScore, nil
	case "failed_pods":
		return float64(snap.FailedPods), nil
	case "pending_pods":
		return float64(snap.PendingPods), nil
	case "running_pods":
		return float64(snap.RunningPods), nil
	case "workload_count":
		return float64(snap.WorkloadCount), nil
	case "cpu_usage":
		return snap.CPUUsage, nil
	case "memory_usage":
		return snap.MemoryUsage, nil
	case "gpu_usage":
		return snap.GPUUsage, nil
	case "disk_usage":
		return snap.DiskUsage, nil
	case "network_io_mbps":
		return snap.NetworkIOMbps, nil
	case "power_consumption_watts":
		return snap.PowerWatts, nil
	case "node_count":
		return float64(snap.NodeCount), nil
	case "master_count":
		return float64(snap.MasterCount), nil
	default:
		return 0, fmt.Errorf("rules: unknown field %q", field)
	}
}
