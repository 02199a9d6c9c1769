// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ConfigSnapshot model: the append-only version chain of a tenant's
// runtime configuration.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
)

// LatestSnapshot returns the most recent configuration snapshot for one
// (tenant, restaurant), or ErrNotFound when none exists yet.
func LatestSnapshot(ctx context.Context, db *gorm.DB, tenantID string, restaurantID int) (*domain.ConfigSnapshot, error) {
	var out domain.ConfigSnapshot
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND restaurant_id = ?", tenantID, restaurantID).
		Order("snapshot_id desc").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestSnapshotID returns the id of the newest snapshot for the tuple, or
// 0 when no snapshot exists. Used for the optimistic concurrency check
// inside the apply transaction.
func LatestSnapshotID(ctx context.Context, db *gorm.DB, tenantID string, restaurantID int) (int64, error) {
	snap, err := LatestSnapshot(ctx, db, tenantID, restaurantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return snap.SnapshotID, nil
}

// CreateSnapshot appends a new configuration version. Snapshots are never
// updated or deleted.
func CreateSnapshot(ctx context.Context, db *gorm.DB, tenantID string, restaurantID int, cfg domain.RuntimeConfig) (*domain.ConfigSnapshot, error) {
	snap := &domain.ConfigSnapshot{
		TenantID:     tenantID,
		RestaurantID: restaurantID,
		Config:       cfg,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(snap).Error; err != nil {
		return nil, err
	}
	return snap, nil
}

// CountSnapshots returns the number of versions recorded for the tuple.
func CountSnapshots(ctx context.Context, db *gorm.DB, tenantID string, restaurantID int) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ConfigSnapshot{}).
		Where("tenant_id = ? AND restaurant_id = ?", tenantID, restaurantID).
		Count(&total).Error
	return total, err
}
