package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

func costRule(name string, threshold float64) Rule {
	return Rule{
		Name:            name,
		Condition:       Condition{Field: "cost_per_hour", Op: OpGT, Value: threshold},
		Severity:        model.SeverityWarning,
		Message:         "cost {cost_per_hour:.2f}",
		CooldownMinutes: 10,
		Enabled:         true,
	}
}

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, costRule("high_cost", 20).Validate())

	r := costRule("", 20)
	assert.ErrorContains(t, r.Validate(), "no name")

	r = costRule("bad_sev", 20)
	r.Severity = "FATAL"
	assert.ErrorContains(t, r.Validate(), "unknown severity")

	r = costRule("neg_cd", 20)
	r.CooldownMinutes = -1
	assert.ErrorContains(t, r.Validate(), "negative cooldown")

	r = costRule("bad_msg", 20)
	r.Message = "{never_a_field}"
	assert.ErrorContains(t, r.Validate(), "unknown fields")
}

func TestRuleCooldownDuration(t *testing.T) {
	r := costRule("high_cost", 20)
	assert.Equal(t, "10m0s", r.CooldownDuration().String())
}

func TestSetAddReplacesByName(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(costRule("high_cost", 20)))
	require.NoError(t, s.Add(costRule("high_cost", 40)))

	assert.Equal(t, 1, s.Len())
	r, ok := s.Get("high_cost")
	require.True(t, ok)
	assert.Equal(t, 40.0, r.Condition.Value)
}

func TestSetAddRejectsInvalid(t *testing.T) {
	s := NewSet()
	assert.Error(t, s.Add(Rule{Name: "broken", Severity: model.SeverityInfo}))
	assert.Equal(t, 0, s.Len())
}

func TestSetRemove(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(costRule("high_cost", 20)))

	assert.True(t, s.Remove("high_cost"))
	assert.False(t, s.Remove("high_cost"))
	assert.Equal(t, 0, s.Len())
}

func TestSetSetEnabled(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(costRule("high_cost", 20)))

	assert.True(t, s.SetEnabled("high_cost", false))
	r, _ := s.Get("high_cost")
	assert.False(t, r.Enabled)

	assert.False(t, s.SetEnabled("missing", true))
}

func TestSetReplaceAtomic(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(costRule("old", 20)))

	// One invalid rule rejects the whole batch and keeps the old set.
	err := s.Replace([]Rule{costRule("new", 30), {Name: "broken"}})
	assert.Error(t, err)
	_, ok := s.Get("old")
	assert.True(t, ok)

	require.NoError(t, s.Replace([]Rule{costRule("new", 30)}))
	_, ok = s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
}

func TestSetSnapshotSorted(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(costRule("zeta", 1)))
	require.NoError(t, s.Add(costRule("alpha", 1)))
	require.NoError(t, s.Add(costRule("mid", 1)))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "alpha", snap[0].Name)
	assert.Equal(t, "mid", snap[1].Name)
	assert.Equal(t, "zeta", snap[2].Name)
}

const ruleYAML = `
rules:
  - name: high_cost
    condition:
      field: cost_per_hour
      op: ">"
      value: 20
    severity: WARNING
    message: "High cost: {cluster_name} - ${cost_per_hour:.2f}/hour"
    cooldown_minutes: 10
    enabled: true
  - name: stuck_failed
    condition:
      status: failed
    severity: CRITICAL
    message: "Cluster failed: {cluster_name}"
    cooldown_minutes: 0
    enabled: true
`

func TestParse(t *testing.T) {
	parsed, err := Parse(strings.NewReader(ruleYAML))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "high_cost", parsed[0].Name)
	assert.Equal(t, OpGT, parsed[0].Condition.Op)
	assert.Equal(t, 20.0, parsed[0].Condition.Value)
	assert.Equal(t, model.StatusFailed, parsed[1].Condition.Status)
	assert.Equal(t, 0, parsed[1].CooldownMinutes)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("rules:\n  - name: x\n    severitee: WARNING\n"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidRule(t *testing.T) {
	_, err := Parse(strings.NewReader("rules:\n  - name: x\n    severity: WARNING\n"))
	assert.ErrorContains(t, err, "empty condition")
}

func TestDefaultRules(t *testing.T) {
	defaults := DefaultRules()
	require.Len(t, defaults, 11)

	byName := make(map[string]Rule, len(defaults))
	for _, r := range defaults {
		assert.NoError(t, r.Validate(), r.Name)
		assert.True(t, r.Enabled, r.Name)
		byName[r.Name] = r
	}

	assert.Equal(t, model.SeverityWarning, byName["high_cost"].Severity)
	assert.Equal(t, 10, byName["high_cost"].CooldownMinutes)
	assert.Equal(t, model.SeverityCritical, byName["very_high_cost"].Severity)
	assert.Equal(t, 5, byName["very_high_cost"].CooldownMinutes)
	assert.Equal(t, model.SeverityInfo, byName["low_efficiency"].Severity)
	assert.Equal(t, 30, byName["low_efficiency"].CooldownMinutes)
	assert.Equal(t, 0, byName["cluster_creation_failed"].CooldownMinutes)
	assert.Equal(t, 60, byName["high_power_consumption"].CooldownMinutes)
}

func TestDefaultRulesFireSensibly(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Replace(DefaultRules()))

	snap := model.ClusterSnapshot{
		ClusterName: "prod-a",
		Status:      model.StatusActive,
		CostPerHour: 25,
		HealthScore: 85,
		CPUUsage:    40,
		MemoryUsage: 40,
	}

	fired := map[string]bool{}
	for _, r := range s.Snapshot() {
		ok, err := r.Condition.Eval(snap)
		require.NoError(t, err, r.Name)
		fired[r.Name] = ok
	}

	assert.True(t, fired["high_cost"])
	assert.False(t, fired["very_high_cost"])
	assert.False(t, fired["low_health"])
	assert.False(t, fired["cluster_creation_failed"])
}
