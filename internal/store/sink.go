package store

import (
	"context"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Sink adapts the store to the alert engine's delivery chain.
type Sink struct {
	store *Store
}

// NewSink returns an alert sink persisting into the store.
func NewSink(s *Store) *Sink { return &Sink{store: s} }

// Name implements the sink contract.
func (s *Sink) Name() string { return "sqlite" }

// Deliver persists the alert. Duplicate delivery is a no-op.
func (s *Sink) Deliver(_ context.Context, a model.Alert) error {
	return s.store.SaveAlert(a)
}
