package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore implements cooldown.Store on Redis so suppression windows
// are shared across monitor instances and survive restarts.
type CooldownStore struct {
	rdb *redis.Client
}

// NewCooldownStore wraps the given client.
func NewCooldownStore(rdb *redis.Client) *CooldownStore {
	return &CooldownStore{rdb: rdb}
}

// Acquire sets the cooldown key if absent. SetNX makes the check-and-start
// atomic across instances.
func (s *CooldownStore) Acquire(ctx context.Context, ruleName, clusterName string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyAlertCooldown(ruleName, clusterName),
		time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: cooldown acquire %s/%s: %w", ruleName, clusterName, err)
	}
	return ok, nil
}

// Clear drops an active window.
func (s *CooldownStore) Clear(ctx context.Context, ruleName, clusterName string) error {
	if err := s.rdb.Del(ctx, keyAlertCooldown(ruleName, clusterName)).Err(); err != nil {
		return fmt.Errorf("cache: cooldown clear %s/%s: %w", ruleName, clusterName, err)
	}
	return nil
}
