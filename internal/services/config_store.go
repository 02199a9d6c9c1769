// Package services – ConfigStore
//
// ConfigStore is the read path for runtime configuration. It resolves the
// current config for a (tenant, restaurant) pair from the newest snapshot,
// falling back to the built-in default when no snapshot exists yet, and keeps
// a small in-process cache in front of the database. Writers invalidate the
// cache after committing a new snapshot rather than overwriting it, so a
// racing reader can never pin a stale version.
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/cache"
	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/repo"
)

// VersionedConfig pairs a runtime config with the snapshot it was read from.
// SnapshotID is 0 for the default config of a tenant with no history.
type VersionedConfig struct {
	SnapshotID int64
	Config     domain.RuntimeConfig
}

// ConfigStore resolves and caches the current runtime configuration.
type ConfigStore struct {
	// DB is the GORM handle used for snapshot reads.
	DB *gorm.DB

	// DefaultNumber seeds the handoff policy of brand-new tenants.
	DefaultNumber string

	cache *cache.Keyed[string, VersionedConfig]
}

// NewConfigStore constructs a ConfigStore backed by db.
func NewConfigStore(db *gorm.DB, defaultNumber string) *ConfigStore {
	return &ConfigStore{
		DB:            db,
		DefaultNumber: defaultNumber,
		cache:         cache.New[string, VersionedConfig](),
	}
}

// Current returns the effective config for the tuple together with the
// snapshot id it is based on. Results are served from cache until a writer
// invalidates the key.
func (s *ConfigStore) Current(ctx context.Context, tenantID string, restaurantID int) (VersionedConfig, error) {
	return s.cache.GetOrLoad(cacheKey(tenantID, restaurantID), func() (VersionedConfig, error) {
		snap, err := repo.LatestSnapshot(ctx, s.DB, tenantID, restaurantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionedConfig{SnapshotID: 0, Config: domain.DefaultRuntimeConfig(s.DefaultNumber)}, nil
		}
		if err != nil {
			return VersionedConfig{}, err
		}
		return VersionedConfig{SnapshotID: snap.SnapshotID, Config: snap.Config}, nil
	})
}

// Invalidate drops the cached config for the tuple. Called by writers after
// committing a snapshot and by the undo path after a rollback.
func (s *ConfigStore) Invalidate(tenantID string, restaurantID int) {
	s.cache.Invalidate(cacheKey(tenantID, restaurantID))
}

func cacheKey(tenantID string, restaurantID int) string {
	return fmt.Sprintf("%s:%d", tenantID, restaurantID)
}
