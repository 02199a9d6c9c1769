// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the WebhookEvent
// model used to implement safe-retry semantics for tool calls and NL
// commands.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
)

// GetWebhookEvent returns the stored response for an event id, or
// ErrNotFound when the event has not been processed (or its record
// expired).
func GetWebhookEvent(ctx context.Context, db *gorm.DB, eventID string, now time.Time) (*domain.WebhookEvent, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.WebhookEvent
	err := db.WithContext(ctx).
		Where("event_id = ? AND expires_at > ?", eventID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateWebhookEvent records a processed event and its serialized response.
// Returns ErrDuplicate when the event id was already stored, which callers
// treat as "another worker won the race".
func CreateWebhookEvent(ctx context.Context, db *gorm.DB, eventID, callID, toolName, response string, ttl time.Duration) (*domain.WebhookEvent, error) {
	now := time.Now().UTC()
	rec := &domain.WebhookEvent{
		EventID:   eventID,
		CallID:    callID,
		ToolName:  toolName,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
