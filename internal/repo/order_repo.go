// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions and aggregate
// queries for the Order model. Each function is context-aware and safe to
// call from services or handlers.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/utils"
)

// CreateOrder inserts an order row. A duplicate SourceEventID (webhook
// retry) reports inserted=false with no error so the caller can surface
// "duplicate submit ignored".
func CreateOrder(ctx context.Context, db *gorm.DB, order *domain.Order) (inserted bool, err error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(order).Error; err != nil {
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OrderFilter bounds an order query. Statuses must be non-empty; From/To
// are optional inclusive time bounds.
type OrderFilter struct {
	RestaurantID int
	Statuses     []string
	From         *time.Time
	To           *time.Time
	Limit        int
}

// ListOrders returns matching orders, newest first, capped at Limit
// (default 20, never more than 200).
func ListOrders(ctx context.Context, db *gorm.DB, f OrderFilter) ([]domain.Order, error) {
	limit := utils.ClampLimit(f.Limit, 20, 200)
	q := db.WithContext(ctx).
		Where("restaurant_id = ?", f.RestaurantID).
		Where("status IN ?", f.Statuses)
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	var out []domain.Order
	err := q.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}
