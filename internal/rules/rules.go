package rules

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Rule binds a condition to an alert severity and message template. Rules
// are identified by name; loading a rule with an existing name replaces it.
type Rule struct {
	Name            string         `yaml:"name" json:"name"`
	Condition       Condition      `yaml:"condition" json:"condition"`
	Severity        model.Severity `yaml:"severity" json:"severity"`
	Message         string         `yaml:"message" json:"message"`
	CooldownMinutes int            `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	Enabled         bool           `yaml:"enabled" json:"enabled"`
}

// CooldownDuration returns the suppression window after the rule fires.
func (r Rule) CooldownDuration() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// Validate rejects rules that could not be evaluated or rendered.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rules: rule has no name")
	}
	if r.Severity != model.SeverityInfo && r.Severity != model.SeverityWarning && r.Severity != model.SeverityCritical {
		return fmt.Errorf("rules: rule %q has unknown severity %q", r.Name, r.Severity)
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("rules: rule %q has negative cooldown", r.Name)
	}
	if err := r.Condition.Validate(); err != nil {
		return fmt.Errorf("rules: rule %q: %w", r.Name, err)
	}
	if !renderOK(r.Message) {
		return fmt.Errorf("rules: rule %q message references unknown fields", r.Name)
	}
	return nil
}

// Set is the mutable collection of rules the alert engine evaluates each
// cycle. It is safe for concurrent use; Snapshot returns a stable copy so
// evaluation never holds the lock across a full cycle.
type Set struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewSet returns an empty rule set.
func NewSet() *Set {
	return &Set{rules: make(map[string]Rule)}
}

// Add validates and inserts a rule, replacing any rule of the same name.
func (s *Set) Add(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.Name] = r
	return nil
}

// Remove deletes a rule by name and reports whether it existed.
func (s *Set) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rules[name]
	delete(s.rules, name)
	return ok
}

// SetEnabled toggles a rule without removing it.
func (s *Set) SetEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[name]
	if !ok {
		return false
	}
	r.Enabled = enabled
	s.rules[name] = r
	return true
}

// Get returns a rule by name.
func (s *Set) Get(name string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[name]
	return r, ok
}

// Replace swaps the whole set atomically. Used by hot reload so a half-read
// rule file never leaves a partial set behind: invalid input keeps the
// previous rules.
func (s *Set) Replace(rules []Rule) error {
	next := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
		next[r.Name] = r
	}
	s.mu.Lock()
	s.rules = next
	s.mu.Unlock()
	return nil
}

// Snapshot returns all rules sorted by name.
func (s *Set) Snapshot() []Rule {
	s.mu.RLock()
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Parse decodes rules from a YAML document of the form {rules: [...]}.
func Parse(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	for _, rule := range f.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}

// LoadFile parses a rule file from disk.
func LoadFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rules: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}
