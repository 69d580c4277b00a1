package store

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kcloudops/kcloud-monitor/internal/rules"
)

// Rule conditions are stored as YAML text in the rule table so operators
// can edit them with the same syntax the rule file uses.

func encodeCondition(c rules.Condition) (string, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("store: encode condition: %w", err)
	}
	return string(raw), nil
}

func decodeCondition(s string) (rules.Condition, error) {
	var c rules.Condition
	dec := yaml.NewDecoder(strings.NewReader(s))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return rules.Condition{}, fmt.Errorf("store: decode condition: %w", err)
	}
	return c, nil
}
