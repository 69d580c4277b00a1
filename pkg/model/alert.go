package model

import "time"

// Severity ranks an alert. String values match the rule store rows.
type Severity string

// Alert severities, least to most severe.
const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns an integer ordering for severity comparison (higher is worse).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Alert is the immutable record of one rule firing for one cluster at one
// instant. Acknowledge and resolve are state transitions tracked alongside
// the alert; the triggering facts never change.
type Alert struct {
	ID          string   `json:"id"`
	RuleName    string   `json:"rule_name"`
	ClusterName string   `json:"cluster_name"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	RaisedAt    int64    `json:"raised_at"` // UnixMilli

	Acknowledged    bool `json:"acknowledged"`
	Resolved        bool `json:"resolved"`
	EscalationLevel int  `json:"escalation_level"`
}

// AlertSummary is the aggregate view handed to dashboards.
type AlertSummary struct {
	Timestamp    int64            `json:"timestamp"`
	TotalActive  int              `json:"total_active"`
	BySeverity   map[Severity]int `json:"by_severity"`
	ByCluster    map[string]int   `json:"by_cluster"`
	RecentAlerts []Alert          `json:"recent_alerts"`
}

// AlertFilter narrows an active-alert query. Zero values match everything.
type AlertFilter struct {
	ClusterName string
	Severity    Severity
	Limit       int
}

// DefaultAlertRetention is how long an unresolved alert stays active before
// the engine auto-resolves it.
const DefaultAlertRetention = 24 * time.Hour
