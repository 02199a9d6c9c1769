// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ConfigChange ledger.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation, typically a repeated
// idempotency key.
var ErrDuplicate = errors.New("duplicate")

// NewChangeID mints a ledger row id.
func NewChangeID() string {
	return "chg_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:18]
}

// CreateChange appends a ledger row pairing an intent with the before/after
// configuration it produced. Returns ErrDuplicate when the idempotency key
// was already used.
func CreateChange(ctx context.Context, db *gorm.DB, change *domain.ConfigChange) error {
	if change.ChangeID == "" {
		change.ChangeID = NewChangeID()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(change).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetChange fetches a ledger row by id scoped to its owner tuple.
func GetChange(ctx context.Context, db *gorm.DB, changeID, tenantID string, restaurantID int) (*domain.ConfigChange, error) {
	var out domain.ConfigChange
	err := db.WithContext(ctx).
		Where("change_id = ? AND tenant_id = ? AND restaurant_id = ?", changeID, tenantID, restaurantID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChangeByIdempotencyKey returns the ledger row previously written for
// the given caller idempotency key, or ErrNotFound.
func GetChangeByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.ConfigChange, error) {
	var out domain.ConfigChange
	err := db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestReversibleChange selects the undo target: when changeID is empty,
// the most recently created non-rolled-back change for the tuple; otherwise
// that specific change, provided it belongs to the tuple and is still
// reversible. Returns ErrNotFound when nothing qualifies.
func LatestReversibleChange(ctx context.Context, db *gorm.DB, tenantID string, restaurantID int, changeID string) (*domain.ConfigChange, error) {
	q := db.WithContext(ctx).
		Where("tenant_id = ? AND restaurant_id = ? AND rolled_back = ?", tenantID, restaurantID, false)
	if changeID != "" {
		q = q.Where("change_id = ?", changeID)
	}
	var out domain.ConfigChange
	if err := q.Order("created_at desc").First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkChangeRolledBack flips the rolled_back flag on a ledger row. The row
// is otherwise immutable.
func MarkChangeRolledBack(ctx context.Context, db *gorm.DB, changeID string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.ConfigChange{}).
		Where("change_id = ? AND rolled_back = ?", changeID, false).
		Updates(map[string]any{"rolled_back": true, "rolled_back_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
