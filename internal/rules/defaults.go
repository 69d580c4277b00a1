package rules

import "github.com/kcloudops/kcloud-monitor/pkg/model"

// DefaultRules returns the built-in rule set installed when neither the rule
// file nor the store provides rules. Cost and utilization rules only fire on
// active clusters; lifecycle rules key off the status itself.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:            "high_cost",
			Condition:       Condition{Field: "cost_per_hour", Op: OpGT, Value: 20.0},
			Severity:        model.SeverityWarning,
			Message:         "High cost detected: {cluster_name} - ${cost_per_hour:.2f}/hour",
			CooldownMinutes: 10,
			Enabled:         true,
		},
		{
			Name:            "very_high_cost",
			Condition:       Condition{Field: "cost_per_hour", Op: OpGT, Value: 50.0},
			Severity:        model.SeverityCritical,
			Message:         "Very high cost: {cluster_name} - ${cost_per_hour:.2f}/hour, review immediately",
			CooldownMinutes: 5,
			Enabled:         true,
		},
		{
			Name: "low_health",
			Condition: Condition{All: []Condition{
				{Field: "health_score", Op: OpLT, Value: 50.0},
				{Status: model.StatusActive},
			}},
			Severity:        model.SeverityWarning,
			Message:         "Health degraded: {cluster_name} - {health_score:.1f}/100",
			CooldownMinutes: 15,
			Enabled:         true,
		},
		{
			Name: "critical_health",
			Condition: Condition{All: []Condition{
				{Field: "health_score", Op: OpLT, Value: 20.0},
				{Status: model.StatusActive},
			}},
			Severity:        model.SeverityCritical,
			Message:         "Critical health: {cluster_name} - {health_score:.1f}/100",
			CooldownMinutes: 5,
			Enabled:         true,
		},
		{
			Name:            "failed_pods",
			Condition:       Condition{Field: "failed_pods", Op: OpGT, Value: 0},
			Severity:        model.SeverityWarning,
			Message:         "Failed pods detected: {cluster_name} - {failed_pods} pods",
			CooldownMinutes: 10,
			Enabled:         true,
		},
		{
			Name:            "many_failed_pods",
			Condition:       Condition{Field: "failed_pods", Op: OpGT, Value: 5},
			Severity:        model.SeverityCritical,
			Message:         "Many pod failures: {cluster_name} - {failed_pods} pods failed",
			CooldownMinutes: 5,
			Enabled:         true,
		},
		{
			Name: "high_cpu",
			Condition: Condition{All: []Condition{
				{Field: "cpu_usage", Op: OpGT, Value: 90.0},
				{Status: model.StatusActive},
			}},
			Severity:        model.SeverityWarning,
			Message:         "High CPU usage: {cluster_name} - {cpu_usage:.1f}%",
			CooldownMinutes: 15,
			Enabled:         true,
		},
		{
			Name: "high_memory",
			Condition: Condition{All: []Condition{
				{Field: "memory_usage", Op: OpGT, Value: 90.0},
				{Status: model.StatusActive},
			}},
			Severity:        model.SeverityWarning,
			Message:         "High memory usage: {cluster_name} - {memory_usage:.1f}%",
			CooldownMinutes: 15,
			Enabled:         true,
		},
		{
			Name: "low_efficiency",
			Condition: Condition{All: []Condition{
				{Field: "efficiency_score", Op: OpLT, Value: 30.0},
				{Status: model.StatusActive},
			}},
			Severity:        model.SeverityInfo,
			Message:         "Low efficiency: {cluster_name} - {efficiency_score:.1f}/100, consider right-sizing",
			CooldownMinutes: 30,
			Enabled:         true,
		},
		{
			Name:            "cluster_creation_failed",
			Condition:       Condition{Status: model.StatusFailed},
			Severity:        model.SeverityCritical,
			Message:         "Cluster provisioning failed: {cluster_name}",
			CooldownMinutes: 0,
			Enabled:         true,
		},
		{
			Name:            "high_power_consumption",
			Condition:       Condition{Field: "power_consumption_watts", Op: OpGT, Value: 5000.0},
			Severity:        model.SeverityInfo,
			Message:         "High power draw: {cluster_name} - {power_consumption_watts:.0f}W",
			CooldownMinutes: 60,
			Enabled:         true,
		},
	}
}
