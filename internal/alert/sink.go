package alert

import (
	"context"
	"log/slog"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Sink receives fired alerts. The monitor wires a different sink chain
// depending on the active mode; delivery failures are isolated per sink so
// one broken destination never blocks the others.
type Sink interface {
	// Deliver hands a fired alert to the destination.
	Deliver(ctx context.Context, a model.Alert) error

	// Name labels the sink in logs and metrics.
	Name() string
}

// LogSink writes every fired alert to the structured log. It is part of
// every sink chain so alerts remain observable even when cache and store
// are down.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Deliver implements Sink.
func (s *LogSink) Deliver(_ context.Context, a model.Alert) error {
	level := slog.LevelInfo
	switch a.Severity {
	case model.SeverityWarning:
		level = slog.LevelWarn
	case model.SeverityCritical:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "alert fired",
		"alert_id", a.ID,
		"rule", a.RuleName,
		"cluster", a.ClusterName,
		"severity", string(a.Severity),
		"message", a.Message,
		"escalation_level", a.EscalationLevel,
	)
	return nil
}
