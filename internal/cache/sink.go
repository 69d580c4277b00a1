package cache

import (
	"context"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Sink adapts the cache to the alert engine's delivery chain.
type Sink struct {
	cache *Cache
}

// NewSink returns an alert sink writing into the cache.
func NewSink(c *Cache) *Sink { return &Sink{cache: c} }

// Name implements the sink contract.
func (s *Sink) Name() string { return "redis" }

// Deliver indexes and publishes the alert.
func (s *Sink) Deliver(ctx context.Context, a model.Alert) error {
	return s.cache.StoreAlert(ctx, a)
}
