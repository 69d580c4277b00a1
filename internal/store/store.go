// Package store is the persistent layer used in enhanced mode: metric rows
// for long-range analysis, an idempotent alert log, and the editable rule
// table that rule hot-reload reads from.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kcloudops/kcloud-monitor/internal/rules"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// MetricRow is one persisted cluster snapshot.
type MetricRow struct {
	ID           uint   `gorm:"primaryKey"`
	ClusterName  string `gorm:"index:idx_metric_cluster_ts,priority:1"`
	CollectionID string
	Timestamp    int64 `gorm:"index:idx_metric_cluster_ts,priority:2"`
	Cycle        uint64

	Status       string
	HealthStatus string
	NodeCount    int
	MasterCount  int
	TemplateID   string
	APIAddress   string

	CPUUsage      float64
	MemoryUsage   float64
	GPUUsage      float64
	DiskUsage     float64
	NetworkIOMbps float64

	RunningPods   int
	FailedPods    int
	PendingPods   int
	WorkloadCount int

	PowerWatts  float64
	CostPerHour float64
	MonthlyCost float64

	HealthScore     float64
	EfficiencyScore float64

	DataSource string
}

// AlertRow is one persisted alert. AlertID carries a unique index so
// re-delivery after a mode flap stays idempotent.
type AlertRow struct {
	ID          uint   `gorm:"primaryKey"`
	AlertID     string `gorm:"uniqueIndex"`
	RuleName    string `gorm:"index"`
	ClusterName string `gorm:"index"`
	Severity    string
	Message     string
	RaisedAt    int64 `gorm:"index"`

	Acknowledged    bool
	Resolved        bool
	EscalationLevel int
}

// RuleRow is one editable alert rule. Condition is the YAML encoding of the
// rule's condition tree.
type RuleRow struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"uniqueIndex"`
	Condition       string
	Severity        string
	Message         string
	CooldownMinutes int
	Enabled         bool
	UpdatedAt       time.Time
}

// Store wraps the SQLite database behind gorm.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&MetricRow{}, &AlertRow{}, &RuleRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping verifies the database connection. Used by the mode probe.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSnapshot persists one snapshot.
func (s *Store) SaveSnapshot(snap model.ClusterSnapshot) error {
	row := metricRowFrom(snap)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("store: save snapshot %s: %w", snap.ClusterName, err)
	}
	return nil
}

// Snapshots returns persisted snapshots for a cluster, newest first.
func (s *Store) Snapshots(cluster string, limit int) ([]model.ClusterSnapshot, error) {
	var rows []MetricRow
	err := s.db.Where("cluster_name = ?", cluster).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: snapshots %s: %w", cluster, err)
	}
	out := make([]model.ClusterSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.snapshot()
	}
	return out, nil
}

// SnapshotsSince returns persisted snapshots for a cluster after the cutoff,
// oldest first, for trend analysis.
func (s *Store) SnapshotsSince(cluster string, since time.Time) ([]model.ClusterSnapshot, error) {
	var rows []MetricRow
	err := s.db.Where("cluster_name = ? AND timestamp > ?", cluster, since.UnixMilli()).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: snapshots since %s: %w", cluster, err)
	}
	out := make([]model.ClusterSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.snapshot()
	}
	return out, nil
}

// PruneSnapshots removes rows older than the cutoff.
func (s *Store) PruneSnapshots(olderThan time.Time) error {
	return s.db.Where("timestamp < ?", olderThan.UnixMilli()).Delete(&MetricRow{}).Error
}

// SaveAlert persists an alert. Duplicate alert IDs are ignored so repeated
// delivery is safe.
func (s *Store) SaveAlert(a model.Alert) error {
	row := AlertRow{
		AlertID:         a.ID,
		RuleName:        a.RuleName,
		ClusterName:     a.ClusterName,
		Severity:        string(a.Severity),
		Message:         a.Message,
		RaisedAt:        a.RaisedAt,
		Acknowledged:    a.Acknowledged,
		Resolved:        a.Resolved,
		EscalationLevel: a.EscalationLevel,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "alert_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: save alert %s: %w", a.ID, err)
	}
	return nil
}

// ResolveAlert marks a persisted alert resolved.
func (s *Store) ResolveAlert(alertID string) error {
	return s.db.Model(&AlertRow{}).Where("alert_id = ?", alertID).Update("resolved", true).Error
}

// AcknowledgeAlert marks a persisted alert acknowledged.
func (s *Store) AcknowledgeAlert(alertID string) error {
	return s.db.Model(&AlertRow{}).Where("alert_id = ?", alertID).Update("acknowledged", true).Error
}

// RecentAlerts returns persisted alerts raised after the cutoff, newest first.
func (s *Store) RecentAlerts(since time.Time) ([]model.Alert, error) {
	var rows []AlertRow
	err := s.db.Where("raised_at > ?", since.UnixMilli()).
		Order("raised_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent alerts: %w", err)
	}
	out := make([]model.Alert, len(rows))
	for i, r := range rows {
		out[i] = model.Alert{
			ID:              r.AlertID,
			RuleName:        r.RuleName,
			ClusterName:     r.ClusterName,
			Severity:        model.Severity(r.Severity),
			Message:         r.Message,
			RaisedAt:        r.RaisedAt,
			Acknowledged:    r.Acknowledged,
			Resolved:        r.Resolved,
			EscalationLevel: r.EscalationLevel,
		}
	}
	return out, nil
}

func metricRowFrom(snap model.ClusterSnapshot) MetricRow {
	return MetricRow{
		ClusterName:     snap.ClusterName,
		CollectionID:    snap.CollectionID,
		Timestamp:       snap.Timestamp,
		Cycle:           snap.Cycle,
		Status:          string(snap.Status),
		HealthStatus:    snap.HealthStatus,
		NodeCount:       snap.NodeCount,
		MasterCount:     snap.MasterCount,
		TemplateID:      snap.TemplateID,
		APIAddress:      snap.APIAddress,
		CPUUsage:        snap.CPUUsage,
		MemoryUsage:     snap.MemoryUsage,
		GPUUsage:        snap.GPUUsage,
		DiskUsage:       snap.DiskUsage,
		NetworkIOMbps:   snap.NetworkIOMbps,
		RunningPods:     snap.RunningPods,
		FailedPods:      snap.FailedPods,
		PendingPods:     snap.PendingPods,
		WorkloadCount:   snap.WorkloadCount,
		PowerWatts:      snap.PowerWatts,
		CostPerHour:     snap.CostPerHour,
		MonthlyCost:     snap.MonthlyCost,
		HealthScore:     snap.HealthScore,
		EfficiencyScore: snap.EfficiencyScore,
		DataSource:      snap.DataSource,
	}
}

func (r MetricRow) snapshot() model.ClusterSnapshot {
	return model.ClusterSnapshot{
		ClusterName:     r.ClusterName,
		CollectionID:    r.CollectionID,
		Timestamp:       r.Timestamp,
		Cycle:           r.Cycle,
		Status:          model.ClusterStatus(r.Status),
		HealthStatus:    r.HealthStatus,
		NodeCount:       r.NodeCount,
		MasterCount:     r.MasterCount,
		TemplateID:      r.TemplateID,
		APIAddress:      r.APIAddress,
		CPUUsage:        r.CPUUsage,
		MemoryUsage:     r.MemoryUsage,
		GPUUsage:        r.GPUUsage,
		DiskUsage:       r.DiskUsage,
		NetworkIOMbps:   r.NetworkIOMbps,
		RunningPods:     r.RunningPods,
		FailedPods:      r.FailedPods,
		PendingPods:     r.PendingPods,
		WorkloadCount:   r.WorkloadCount,
		PowerWatts:      r.PowerWatts,
		CostPerHour:     r.CostPerHour,
		MonthlyCost:     r.MonthlyCost,
		HealthScore:     r.HealthScore,
		EfficiencyScore: r.EfficiencyScore,
		DataSource:      r.DataSource,
	}
}

// SaveRules upserts the given rules by name.
func (s *Store) SaveRules(rs []rules.Rule) error {
	for _, r := range rs {
		cond, err := encodeCondition(r.Condition)
		if err != nil {
			return err
		}
		row := RuleRow{
			Name:            r.Name,
			Condition:       cond,
			Severity:        string(r.Severity),
			Message:         r.Message,
			CooldownMinutes: r.CooldownMinutes,
			Enabled:         r.Enabled,
			UpdatedAt:       time.Now(),
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("store: save rule %s: %w", r.Name, err)
		}
	}
	return nil
}

// DeleteRule removes a rule row by name.
func (s *Store) DeleteRule(name string) error {
	return s.db.Where("name = ?", name).Delete(&RuleRow{}).Error
}

// LoadRules returns all stored rules, disabled ones included so the caller
// can surface them in the debug view.
func (s *Store) LoadRules() ([]rules.Rule, error) {
	var rows []RuleRow
	if err := s.db.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: load rules: %w", err)
	}
	out := make([]rules.Rule, 0, len(rows))
	for _, row := range rows {
		cond, err := decodeCondition(row.Condition)
		if err != nil {
			return nil, fmt.Errorf("store: rule %s: %w", row.Name, err)
		}
		out = append(out, rules.Rule{
			Name:            row.Name,
			Condition:       cond,
			Severity:        model.Severity(row.Severity),
			Message:         row.Message,
			CooldownMinutes: row.CooldownMinutes,
			Enabled:         row.Enabled,
		})
	}
	return out, nil
}
