package domain

import "github.com/shopspring/decimal"

// IntentType is the closed enumeration of commands the parser recognizes.
type IntentType string

const (
	IntentUndo                 IntentType = "ops.undo"
	IntentOrderQuery           IntentType = "order.query"
	IntentTransferRuleUpsert   IntentType = "routing.transfer_rule.upsert"
	IntentTransferRuleDelete   IntentType = "routing.transfer_rule.delete"
	IntentHandoffPolicySet     IntentType = "routing.handoff_policy.set"
	IntentBusinessHoursSet     IntentType = "hours.business_hours.set"
	IntentItemAvailabilitySet  IntentType = "menu.item.availability.set"
	IntentItemPriceSet         IntentType = "menu.item.price.set"
	IntentRecommendationWeight IntentType = "menu.item.recommendation_weight.set"
	IntentClarificationNeeded  IntentType = "clarification_needed"
)

// RiskLevel gates whether a command needs explicit operator confirmation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Intent lifecycle statuses. An intent is created as StatusParsed and only
// ever moves forward; terminal statuses are never rewritten.
const (
	StatusParsed              = "parsed"
	StatusClarificationNeeded = "clarification_needed"
	StatusDryRun              = "dry_run"
	StatusNeedsConfirmation   = "needs_confirmation"
	StatusApplied             = "applied"
	StatusRejected            = "rejected"
	StatusRolledBack          = "rolled_back"
)

// ItemRef identifies a menu item resolved by fuzzy match.
type ItemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IntentPayload is the sum type over intent-specific payload variants. The
// apply dispatch type-switches over these; adding a variant without a handler
// is caught by the default branch returning ErrUnsupportedIntent.
type IntentPayload interface {
	intentPayload()
}

// TransferRuleUpsertPayload adds a call-transfer rule.
type TransferRuleUpsertPayload struct {
	Trigger     string         `json:"trigger"`
	PhoneNumber string         `json:"phone_number"`
	Priority    int            `json:"priority"`
	Conditions  RuleConditions `json:"conditions"`
}

// TransferRuleDeletePayload removes a transfer rule. When RuleID is empty
// every rule is cleared (legacy behavior, see apply docs).
type TransferRuleDeletePayload struct {
	RuleID string `json:"rule_id,omitempty"`
}

// HandoffPolicySetPayload shallow-merges the given fields into the policy.
type HandoffPolicySetPayload struct {
	Fields map[string]any `json:"fields"`
}

// BusinessHoursSetPayload replaces the weekly schedule wholesale.
type BusinessHoursSetPayload struct {
	Days      []string `json:"days"`
	OpenTime  string   `json:"open_time"`
	CloseTime string   `json:"close_time"`
	Timezone  string   `json:"timezone"`
}

// AvailabilitySetPayload pauses or resumes a menu item.
type AvailabilitySetPayload struct {
	Item           ItemRef `json:"item_ref"`
	Available      bool    `json:"available"`
	EffectiveUntil *string `json:"effective_until"`
	Reason         string  `json:"reason"`
}

// PriceSetPayload changes a menu item's price.
type PriceSetPayload struct {
	Item        ItemRef         `json:"item_ref"`
	NewPrice    decimal.Decimal `json:"new_price"`
	Currency    string          `json:"currency"`
	EffectiveAt string          `json:"effective_at"`
}

// RecommendationWeightPayload adjusts how strongly an item is recommended.
// Item may be nil when the command names no specific dish.
type RecommendationWeightPayload struct {
	Item        *ItemRef `json:"item_ref"`
	Weight      string   `json:"weight"`
	EffectiveAt string   `json:"effective_at"`
}

// OrderQueryFilters bound a read-only order aggregation.
type OrderQueryFilters struct {
	Status      []string `json:"status"`
	From        *string  `json:"from"`
	To          *string  `json:"to"`
	HasTransfer *bool    `json:"has_transfer"`
}

// OrderQueryPayload requests a read-only aggregation over orders.
type OrderQueryPayload struct {
	Filters     OrderQueryFilters `json:"filters"`
	Aggregation string            `json:"aggregation"` // "count", "sum" or "list"
	Limit       int               `json:"limit"`
}

// UndoPayload targets a rollback; empty ChangeID means "most recent".
type UndoPayload struct {
	ChangeID string `json:"change_id,omitempty"`
}

func (TransferRuleUpsertPayload) intentPayload()   {}
func (TransferRuleDeletePayload) intentPayload()   {}
func (HandoffPolicySetPayload) intentPayload()     {}
func (BusinessHoursSetPayload) intentPayload()     {}
func (AvailabilitySetPayload) intentPayload()      {}
func (PriceSetPayload) intentPayload()             {}
func (RecommendationWeightPayload) intentPayload() {}
func (OrderQueryPayload) intentPayload()           {}
func (UndoPayload) intentPayload()                 {}
