package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Config holds all monitor configuration values.
type Config struct {
	// Identity
	SessionID string
	Version   string

	// Fleet
	Clusters []string            // KCLOUD_CLUSTERS, comma-separated cluster names
	Groups   map[string][]string // KCLOUD_GROUPS, "group=a|b,group2=c"

	// Scheduling
	CycleInterval      time.Duration // KCLOUD_CYCLE_INTERVAL, default 30s
	CollectTimeout     time.Duration // KCLOUD_COLLECT_TIMEOUT, per-cluster call timeout
	CollectConcurrency int           // KCLOUD_COLLECT_CONCURRENCY, bounded parallelism
	ShutdownGrace      time.Duration // KCLOUD_SHUTDOWN_GRACE

	// Resilience
	FailureThreshold   int           // KCLOUD_FAILURE_THRESHOLD, consecutive cycle failures before Fallback
	ProbeInterval      time.Duration // KCLOUD_PROBE_INTERVAL, persistent-collaborator health probe
	RuleReloadInterval time.Duration // KCLOUD_RULE_RELOAD_INTERVAL, store rule hot reload

	// Collaborators
	RedisAddr     string // KCLOUD_REDIS_ADDR, empty disables the cache
	RedisPassword string
	RedisDB       int
	StorePath     string // KCLOUD_STORE_PATH, sqlite file; empty disables the store
	RuleFile      string // KCLOUD_RULE_FILE, optional YAML rule set override
	Kubeconfig    string // KCLOUD_KUBECONFIG, control-plane access outside the cluster

	// ClusterNamespace is where the control plane keeps Cluster objects.
	ClusterNamespace string // KCLOUD_CLUSTER_NAMESPACE, default "default"

	// Cost model
	ElectricityRate float64 // KCLOUD_ELECTRICITY_RATE, $/kWh
	CoolingOverhead float64 // KCLOUD_COOLING_OVERHEAD, PUE multiplier

	// History
	HistoryLimit int // KCLOUD_HISTORY_LIMIT, retained snapshots per cluster

	// Health surface
	HealthPort     int  // KCLOUD_HEALTH_PORT
	DebugEndpoints bool // KCLOUD_DEBUG_ENDPOINTS
}

// Load reads configuration from environment variables and returns a Config
// with defaults applied for any unset values.
func Load() Config {
	cfg := Config{
		SessionID: uuid.New().String(),
		Version:   envOrDefault("KCLOUD_VERSION", "dev"),

		Clusters: parseStringSlice("KCLOUD_CLUSTERS"),
		Groups:   parseGroups(os.Getenv("KCLOUD_GROUPS")),

		CycleInterval:      parseDuration("KCLOUD_CYCLE_INTERVAL", 30*time.Second),
		CollectTimeout:     parseDuration("KCLOUD_COLLECT_TIMEOUT", 15*time.Second),
		CollectConcurrency: parseInt("KCLOUD_COLLECT_CONCURRENCY", 8),
		ShutdownGrace:      parseDuration("KCLOUD_SHUTDOWN_GRACE", 10*time.Second),

		FailureThreshold:   parseInt("KCLOUD_FAILURE_THRESHOLD", 5),
		ProbeInterval:      parseDuration("KCLOUD_PROBE_INTERVAL", 5*time.Minute),
		RuleReloadInterval: parseDuration("KCLOUD_RULE_RELOAD_INTERVAL", 5*time.Minute),

		RedisAddr:     os.Getenv("KCLOUD_REDIS_ADDR"),
		RedisPassword: os.Getenv("KCLOUD_REDIS_PASSWORD"),
		RedisDB:       parseInt("KCLOUD_REDIS_DB", 0),
		StorePath:     os.Getenv("KCLOUD_STORE_PATH"),
		RuleFile:      os.Getenv("KCLOUD_RULE_FILE"),
		Kubeconfig:    os.Getenv("KCLOUD_KUBECONFIG"),

		ClusterNamespace: envOrDefault("KCLOUD_CLUSTER_NAMESPACE", "default"),

		ElectricityRate: parseFloat("KCLOUD_ELECTRICITY_RATE", 0.12),
		CoolingOverhead: parseFloat("KCLOUD_COOLING_OVERHEAD", 1.3),

		HistoryLimit: parseInt("KCLOUD_HISTORY_LIMIT", 100),

		HealthPort:     parseInt("KCLOUD_HEALTH_PORT", 8080),
		DebugEndpoints: parseBool("KCLOUD_DEBUG_ENDPOINTS", false),
	}

	return cfg
}

// Templates returns the cluster template catalog. The defaults match the
// profiles the cost model was calibrated against; unknown template IDs fall
// back to the dev profile.
func Templates() map[string]model.TemplateProfile {
	return map[string]model.TemplateProfile{
		"ai-k8s-template": {
			TemplateID:      "ai-k8s-template",
			Name:            "AI/ML GPU workload template",
			BaseCostPerHour: 1.20,
			HasGPU:          true,
			PowerPerNode:    1200.0,
		},
		"dev-k8s-template": {
			TemplateID:      "dev-k8s-template",
			Name:            "Development CPU template",
			BaseCostPerHour: 0.15,
			HasGPU:          false,
			PowerPerNode:    300.0,
		},
		"prod-k8s-template": {
			TemplateID:      "prod-k8s-template",
			Name:            "Production high-performance template",
			BaseCostPerHour: 0.30,
			HasGPU:          false,
			PowerPerNode:    500.0,
		},
	}
}

// DefaultTemplateID is the fallback profile when a cluster's template is
// unknown or the template store is unreachable.
const DefaultTemplateID = "dev-k8s-template"

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to treating
// the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func parseStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// parseGroups parses "group-a=c1|c2,group-b=c3" into a group → members map.
func parseGroups(v string) map[string][]string {
	if v == "" {
		return nil
	}
	groups := make(map[string][]string)
	for _, part := range strings.Split(v, ",") {
		name, members, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		var list []string
		for _, m := range strings.Split(members, "|") {
			m = strings.TrimSpace(m)
			if m != "" {
				list = append(list, m)
			}
		}
		if len(list) > 0 {
			groups[name] = list
		}
	}
	if len(groups) == 0 {
		return nil
	}
	return groups
}
