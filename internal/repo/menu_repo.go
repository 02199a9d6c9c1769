// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the MenuItem
// catalog.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erichecan/AIrest/internal/domain"
)

// ListMenuItems returns every catalog item for one restaurant.
func ListMenuItems(ctx context.Context, db *gorm.DB, restaurantID int) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UpsertMenuItems inserts or replaces catalog rows. Used by bootstrap
// seeding and tests; callers must invalidate the menu index cache for the
// affected restaurant afterwards.
func UpsertMenuItems(ctx context.Context, db *gorm.DB, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		items[i].UpdatedAt = now
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&items).Error
}
