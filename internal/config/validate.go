package config

import (
	"fmt"
	"time"
)

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	if len(c.Clusters) == 0 && len(c.Groups) == 0 {
		return fmt.Errorf("config: KCLOUD_CLUSTERS or KCLOUD_GROUPS is required")
	}

	if c.CycleInterval < 5*time.Second {
		return fmt.Errorf("config: CycleInterval must be >= 5s, got %v", c.CycleInterval)
	}

	if c.CollectTimeout <= 0 {
		return fmt.Errorf("config: CollectTimeout must be > 0, got %v", c.CollectTimeout)
	}
	if c.CollectTimeout >= c.CycleInterval {
		return fmt.Errorf("config: CollectTimeout (%v) must be shorter than CycleInterval (%v)", c.CollectTimeout, c.CycleInterval)
	}

	if c.CollectConcurrency < 1 {
		return fmt.Errorf("config: CollectConcurrency must be >= 1, got %d", c.CollectConcurrency)
	}

	if c.FailureThreshold < 1 {
		return fmt.Errorf("config: FailureThreshold must be >= 1, got %d", c.FailureThreshold)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("config: ProbeInterval must be > 0, got %v", c.ProbeInterval)
	}
	if c.RuleReloadInterval <= 0 {
		return fmt.Errorf("config: RuleReloadInterval must be > 0, got %v", c.RuleReloadInterval)
	}

	if c.ElectricityRate < 0 {
		return fmt.Errorf("config: ElectricityRate must be >= 0, got %v", c.ElectricityRate)
	}
	if c.CoolingOverhead < 1.0 {
		return fmt.Errorf("config: CoolingOverhead must be >= 1.0, got %v", c.CoolingOverhead)
	}

	if c.HistoryLimit < 1 {
		return fmt.Errorf("config: HistoryLimit must be >= 1, got %d", c.HistoryLimit)
	}

	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return fmt.Errorf("config: HealthPort must be 1-65535, got %d", c.HealthPort)
	}

	return nil
}

// AllClusters returns the deduplicated union of the flat cluster list and
// every group member, preserving first-seen order.
func (c Config) AllClusters() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	for _, name := range c.Clusters {
		add(name)
	}
	for _, members := range c.Groups {
		for _, name := range members {
			add(name)
		}
	}
	return out
}
