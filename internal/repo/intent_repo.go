// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Intent
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an intent is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateIntent inserts a freshly parsed intent row. CreatedAt is set to UTC
// when the caller left it zero.
func CreateIntent(ctx context.Context, db *gorm.DB, intent *domain.Intent) error {
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(intent).Error
}

// GetIntent fetches a single intent by its id, or ErrNotFound.
func GetIntent(ctx context.Context, db *gorm.DB, intentID string) (*domain.Intent, error) {
	var out domain.Intent
	err := db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIntentStatus moves an intent to a new lifecycle status. No rows
// affected means the intent does not exist and yields ErrNotFound.
func UpdateIntentStatus(ctx context.Context, db *gorm.DB, intentID, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Intent{}).
		Where("intent_id = ?", intentID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListIntents returns the most recent intents for one tenant+restaurant,
// newest first, capped at limit.
func ListIntents(ctx context.Context, db *gorm.DB, tenantID string, restaurantID, limit int) ([]domain.Intent, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Intent
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND restaurant_id = ?", tenantID, restaurantID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
