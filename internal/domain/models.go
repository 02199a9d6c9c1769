// Package domain defines the persistence models for natural-language
// intents, configuration snapshots, the change ledger, and audit logs.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intent is one classified natural-language command. Rows are inserted once
// by the execution workflow and afterwards only the status column moves;
// raw_text and the parsed payload are immutable. Intents are never deleted.
//
// Fields:
//   - IntentID: opaque unique token ("int_" + uuid hex prefix).
//   - TenantID / RestaurantID: ownership tuple; all queries are scoped to it.
//   - ActorID / Source / Language: who issued the command and through which
//     channel, and the detected language code ("en" or "zh").
//   - RawText: original input, kept verbatim for the confirm flow.
//   - Confidence: classifier confidence in [0,1], rounded to 3 decimals.
//   - RiskLevel / RequiresConfirmation: confirmation gating inputs.
//   - EffectiveStart / EffectiveEnd / EffectiveTimezone: when the change
//     takes effect (currently always "now" with an open end).
//   - Payload: intent-type-specific JSON document.
//   - ValidationErrors: ordered human-readable problems; non-empty means the
//     intent can never be applied.
//   - Status: lifecycle field, see the Status* constants.
type Intent struct {
	IntentID             string     `json:"intent_id"             gorm:"type:varchar(64);primaryKey"`
	TenantID             string     `json:"tenant_id"             gorm:"type:varchar(64);not null;index:idx_intents_tenant_rest,priority:1"`
	RestaurantID         int        `json:"restaurant_id"         gorm:"not null;index:idx_intents_tenant_rest,priority:2"`
	ActorID              string     `json:"actor_id"              gorm:"type:varchar(64)"`
	Source               string     `json:"source"                gorm:"type:varchar(32)"`
	Language             string     `json:"language"              gorm:"type:varchar(8)"`
	RawText              string     `json:"raw_text"              gorm:"type:text;not null"`
	IntentType           IntentType `json:"intent_type"           gorm:"type:varchar(128);not null"`
	Confidence           float64    `json:"confidence"            gorm:"not null"`
	RiskLevel            RiskLevel  `json:"risk_level"            gorm:"type:varchar(16);not null"`
	RequiresConfirmation bool       `json:"requires_confirmation" gorm:"not null;default:false"`
	EffectiveStart       time.Time  `json:"effective_start"`
	EffectiveEnd         *time.Time `json:"effective_end"`
	EffectiveTimezone    string     `json:"effective_timezone"    gorm:"type:varchar(64)"`
	Payload              JSONText   `json:"payload"               gorm:"type:text;not null"`
	ValidationErrors     []string   `json:"validation_errors"     gorm:"serializer:json;type:text;not null"`
	Status               string     `json:"status"                gorm:"type:varchar(32);not null;default:'parsed'"`
	CreatedAt            time.Time  `json:"created_at"            gorm:"index:idx_intents_tenant_rest,priority:3"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Parsed is the typed payload variant produced by the parser. It is not
	// persisted; Payload carries its JSON encoding.
	Parsed IntentPayload `json:"-" gorm:"-"`
}

// TableName returns the database table name for Intent.
func (Intent) TableName() string { return "nl_intents" }

// ConfigSnapshot is one immutable version of a tenant+restaurant's
// RuntimeConfig. Snapshots are only ever appended; the current configuration
// is the row with the greatest SnapshotID for the tuple. This append-only
// discipline is what makes rollbacks safe and auditable.
type ConfigSnapshot struct {
	SnapshotID   int64         `json:"snapshot_id"   gorm:"primaryKey;autoIncrement"`
	TenantID     string        `json:"tenant_id"     gorm:"type:varchar(64);not null;index:idx_snapshots_tenant_rest,priority:1"`
	RestaurantID int           `json:"restaurant_id" gorm:"not null;index:idx_snapshots_tenant_rest,priority:2"`
	Config       RuntimeConfig `json:"config"        gorm:"serializer:json;type:text;not null"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TableName returns the database table name for ConfigSnapshot.
func (ConfigSnapshot) TableName() string { return "config_snapshots" }

// ConfigChange is one applied (or rolled-back) mutation in the ledger. It
// pairs the originating intent with the full before/after configuration so a
// rollback needs nothing but this row. Undo flips RolledBack and writes
// PreviousState as a fresh snapshot; the row itself is never edited beyond
// that flag and never deleted.
type ConfigChange struct {
	ChangeID       string        `json:"change_id"       gorm:"type:varchar(64);primaryKey"`
	TenantID       string        `json:"tenant_id"       gorm:"type:varchar(64);not null;index:idx_changes_tenant_rest,priority:1"`
	RestaurantID   int           `json:"restaurant_id"   gorm:"not null;index:idx_changes_tenant_rest,priority:2"`
	IntentID       string        `json:"intent_id"       gorm:"type:varchar(64);index"`
	ActionType     IntentType    `json:"action_type"     gorm:"type:varchar(128);not null"`
	Payload        JSONText      `json:"payload"         gorm:"type:text;not null"`
	PreviousState  RuntimeConfig `json:"previous_state"  gorm:"serializer:json;type:text;not null"`
	NewState       RuntimeConfig `json:"new_state"       gorm:"serializer:json;type:text;not null"`
	Applied        bool          `json:"applied"         gorm:"not null;default:true"`
	AppliedAt      *time.Time    `json:"applied_at"`
	RolledBack     bool          `json:"rolled_back"     gorm:"not null;default:false"`
	RolledBackAt   *time.Time    `json:"rolled_back_at"`
	IdempotencyKey *string       `json:"-"               gorm:"type:varchar(255);uniqueIndex"`
	CreatedAt      time.Time     `json:"created_at"      gorm:"index:idx_changes_tenant_rest,priority:3"`
}

// TableName returns the database table name for ConfigChange.
func (ConfigChange) TableName() string { return "config_changes" }

// AuditLog is an append-only record of every state-affecting or query
// action. Rows are never mutated.
type AuditLog struct {
	AuditID      int64          `json:"audit_id"      gorm:"primaryKey;autoIncrement"`
	TenantID     string         `json:"tenant_id"     gorm:"type:varchar(64);not null;index:idx_audit_tenant_rest,priority:1"`
	RestaurantID int            `json:"restaurant_id" gorm:"not null;index:idx_audit_tenant_rest,priority:2"`
	ActorID      string         `json:"actor_id"      gorm:"type:varchar(64)"`
	Source       string         `json:"source"        gorm:"type:varchar(32)"`
	EventType    string         `json:"event_type"    gorm:"type:varchar(64);not null"`
	Detail       map[string]any `json:"detail"        gorm:"serializer:json;type:text;not null"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }

// MenuItem is one dish in a restaurant's catalog. The fuzzy menu index is
// built from name_en, name_zh and keywords.
type MenuItem struct {
	ID           string          `json:"id"            gorm:"type:varchar(64);primaryKey"`
	RestaurantID int             `json:"restaurant_id" gorm:"not null;index"`
	NameEN       string          `json:"name_en"       gorm:"type:varchar(255);not null"`
	NameZH       string          `json:"name_zh"       gorm:"type:varchar(255)"`
	Keywords     []string        `json:"keywords"      gorm:"serializer:json;type:text"`
	Price        decimal.Decimal `json:"price"         gorm:"type:decimal(10,2);not null"`
	Available    bool            `json:"available"     gorm:"not null;default:true"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName returns the database table name for MenuItem.
func (MenuItem) TableName() string { return "menu_items" }

// Order is a submitted customer order. SourceEventID dedupes webhook
// retries: a second submit with the same event id is ignored.
type Order struct {
	ID            string          `json:"id"             gorm:"type:varchar(64);primaryKey"`
	RestaurantID  int             `json:"restaurant_id"  gorm:"not null;index:idx_orders_rest_created,priority:1"`
	CustomerPhone string          `json:"customer_phone" gorm:"type:varchar(32)"`
	Items         JSONText        `json:"items"          gorm:"type:text;not null"`
	Total         decimal.Decimal `json:"total"          gorm:"type:decimal(10,2);not null"`
	Status        string          `json:"status"         gorm:"type:varchar(32);not null"`
	SourceEventID *string         `json:"-"              gorm:"type:varchar(128);uniqueIndex"`
	CreatedAt     time.Time       `json:"created_at"     gorm:"index:idx_orders_rest_created,priority:2"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }
