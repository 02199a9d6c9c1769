// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only audit log writer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
)

// AppendAudit writes one audit entry. Audit rows are never updated or
// deleted.
func AppendAudit(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Detail == nil {
		entry.Detail = map[string]any{}
	}
	return db.WithContext(ctx).Create(entry).Error
}

// ListAudit returns the newest audit entries for one tenant+restaurant,
// capped at limit.
func ListAudit(ctx context.Context, db *gorm.DB, tenantID string, restaurantID, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.AuditLog
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND restaurant_id = ?", tenantID, restaurantID).
		Order("audit_id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
