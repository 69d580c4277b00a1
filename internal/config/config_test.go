package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.NotEmpty(t, cfg.SessionID)
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, 30*time.Second, cfg.CycleInterval)
	assert.Equal(t, 15*time.Second, cfg.CollectTimeout)
	assert.Equal(t, 8, cfg.CollectConcurrency)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 5*time.Minute, cfg.ProbeInterval)
	assert.Equal(t, 5*time.Minute, cfg.RuleReloadInterval)
	assert.Equal(t, "default", cfg.ClusterNamespace)
	assert.Equal(t, 0.12, cfg.ElectricityRate)
	assert.Equal(t, 1.3, cfg.CoolingOverhead)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 8080, cfg.HealthPort)
	assert.False(t, cfg.DebugEndpoints)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KCLOUD_CLUSTERS", "prod-a, prod-b,")
	t.Setenv("KCLOUD_GROUPS", "prod=prod-a|prod-b, edge=edge-1")
	t.Setenv("KCLOUD_CYCLE_INTERVAL", "1m")
	t.Setenv("KCLOUD_COLLECT_TIMEOUT", "20")
	t.Setenv("KCLOUD_REDIS_ADDR", "redis:6379")
	t.Setenv("KCLOUD_DEBUG_ENDPOINTS", "true")

	cfg := Load()

	assert.Equal(t, []string{"prod-a", "prod-b"}, cfg.Clusters)
	assert.Equal(t, map[string][]string{
		"prod": {"prod-a", "prod-b"},
		"edge": {"edge-1"},
	}, cfg.Groups)
	assert.Equal(t, time.Minute, cfg.CycleInterval)
	// Bare integers are read as seconds.
	assert.Equal(t, 20*time.Second, cfg.CollectTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.DebugEndpoints)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("KCLOUD_CYCLE_INTERVAL", "soon")
	t.Setenv("KCLOUD_COLLECT_CONCURRENCY", "many")
	t.Setenv("KCLOUD_ELECTRICITY_RATE", "cheap")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.CycleInterval)
	assert.Equal(t, 8, cfg.CollectConcurrency)
	assert.Equal(t, 0.12, cfg.ElectricityRate)
}

func TestParseGroupsMalformed(t *testing.T) {
	assert.Nil(t, parseGroups(""))
	assert.Nil(t, parseGroups("=a|b"))
	assert.Nil(t, parseGroups("prod="))

	groups := parseGroups("prod=a|b,broken,edge=c")
	assert.Equal(t, map[string][]string{
		"prod": {"a", "b"},
		"edge": {"c"},
	}, groups)
}

func validConfig() Config {
	return Config{
		Clusters:           []string{"prod-a"},
		CycleInterval:      30 * time.Second,
		CollectTimeout:     15 * time.Second,
		CollectConcurrency: 8,
		FailureThreshold:   5,
		ProbeInterval:      5 * time.Minute,
		RuleReloadInterval: 5 * time.Minute,
		ElectricityRate:    0.12,
		CoolingOverhead:    1.3,
		HistoryLimit:       100,
		HealthPort:         8080,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no clusters", func(c *Config) { c.Clusters = nil }, "KCLOUD_CLUSTERS or KCLOUD_GROUPS"},
		{"short cycle", func(c *Config) { c.CycleInterval = time.Second }, "CycleInterval"},
		{"zero timeout", func(c *Config) { c.CollectTimeout = 0 }, "CollectTimeout"},
		{"timeout exceeds cycle", func(c *Config) { c.CollectTimeout = time.Minute }, "shorter than CycleInterval"},
		{"zero concurrency", func(c *Config) { c.CollectConcurrency = 0 }, "CollectConcurrency"},
		{"zero threshold", func(c *Config) { c.FailureThreshold = 0 }, "FailureThreshold"},
		{"zero probe interval", func(c *Config) { c.ProbeInterval = 0 }, "ProbeInterval"},
		{"zero reload interval", func(c *Config) { c.RuleReloadInterval = 0 }, "RuleReloadInterval"},
		{"negative rate", func(c *Config) { c.ElectricityRate = -1 }, "ElectricityRate"},
		{"sub-unity PUE", func(c *Config) { c.CoolingOverhead = 0.9 }, "CoolingOverhead"},
		{"zero history", func(c *Config) { c.HistoryLimit = 0 }, "HistoryLimit"},
		{"bad port", func(c *Config) { c.HealthPort = 70000 }, "HealthPort"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestValidateGroupsOnly(t *testing.T) {
	cfg := validConfig()
	cfg.Clusters = nil
	cfg.Groups = map[string][]string{"prod": {"a"}}
	assert.NoError(t, cfg.Validate())
}

func TestAllClustersDedup(t *testing.T) {
	cfg := Config{
		Clusters: []string{"a", "b"},
		Groups:   map[string][]string{"prod": {"b", "c"}},
	}

	all := cfg.AllClusters()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, all)
	// The flat list comes first.
	assert.Equal(t, []string{"a", "b"}, all[:2])
}

func TestTemplates(t *testing.T) {
	templates := Templates()
	require.Contains(t, templates, DefaultTemplateID)

	ai := templates["ai-k8s-template"]
	assert.True(t, ai.HasGPU)
	assert.Equal(t, 1200.0, ai.PowerPerNode)
	assert.False(t, templates["dev-k8s-template"].HasGPU)
}
