// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// WebhookEvent records the serialized result of a previously processed
// tool call or NL command, keyed by the caller-supplied idempotency token.
// It enables safe retries: a repeated event id returns the originally
// produced response without re-executing side effects.
type WebhookEvent struct {
	EventID   string    `gorm:"type:varchar(128);primaryKey"`
	CallID    string    `gorm:"type:varchar(128)"`
	ToolName  string    `gorm:"type:varchar(128)"`
	Response  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (WebhookEvent) TableName() string { return "webhook_events" }
