package domain

import "github.com/shopspring/decimal"

// AllWeekDays is the canonical seven-day schedule used when a command does
// not restrict the days a rule applies to.
var AllWeekDays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DefaultTimezone is used for effective windows and business hours when no
// tenant-specific timezone is on record.
const DefaultTimezone = "America/Toronto"

// TransferRule routes an inbound call to a phone number when its trigger
// fires. Rules are ordered; lower Priority wins on overlap.
type TransferRule struct {
	RuleID      string         `json:"rule_id"`
	Trigger     string         `json:"trigger"` // "always" or "after_hours"
	PhoneNumber string         `json:"phone_number"`
	Priority    int            `json:"priority"`
	Conditions  RuleConditions `json:"conditions"`
}

// RuleConditions narrows when a transfer rule applies.
type RuleConditions struct {
	Language       string           `json:"language"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount"`
}

// HandoffPolicy controls when the assistant hands a call to a human.
type HandoffPolicy struct {
	UserRequestsHuman bool   `json:"user_requests_human"`
	BusyLinePolicy    string `json:"busy_line_policy"`
	DefaultNumber     string `json:"default_number"`
}

// BusinessHours is the weekly opening schedule.
type BusinessHours struct {
	Days      []string `json:"days"`
	OpenTime  string   `json:"open_time"`  // "HH:MM"
	CloseTime string   `json:"close_time"` // "HH:MM"
	Timezone  string   `json:"timezone"`
}

// MenuOverride carries per-item deviations from the base menu. Nil pointer
// fields mean "no override"; an availability change must not clobber a price
// override on the same item and vice versa.
type MenuOverride struct {
	Available *bool            `json:"available,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// RuntimeConfig is the live operational state for one (tenant, restaurant)
// pair. It is append-versioned: every mutation produces a brand-new snapshot
// row and the current config is always the most recent snapshot.
type RuntimeConfig struct {
	TransferRules         []TransferRule          `json:"transfer_rules"`
	HandoffPolicy         HandoffPolicy           `json:"handoff_policy"`
	BusinessHours         BusinessHours           `json:"business_hours"`
	MenuOverrides         map[string]MenuOverride `json:"menu_overrides"`
	RecommendationWeights map[string]string       `json:"recommendation_weights"`
}

// DefaultRuntimeConfig returns the configuration in effect before any
// snapshot exists for a tenant. defaultNumber is the fallback human-handoff
// phone number.
func DefaultRuntimeConfig(defaultNumber string) RuntimeConfig {
	return RuntimeConfig{
		TransferRules: []TransferRule{},
		HandoffPolicy: HandoffPolicy{
			UserRequestsHuman: true,
			BusyLinePolicy:    "transfer",
			DefaultNumber:     defaultNumber,
		},
		BusinessHours: BusinessHours{
			Days:      append([]string(nil), AllWeekDays...),
			OpenTime:  "10:00",
			CloseTime: "22:00",
			Timezone:  DefaultTimezone,
		},
		MenuOverrides:         map[string]MenuOverride{},
		RecommendationWeights: map[string]string{},
	}
}

// Clone returns a deep copy so appliers can mutate freely without aliasing
// the cached snapshot.
func (c RuntimeConfig) Clone() RuntimeConfig {
	out := c
	out.TransferRules = make([]TransferRule, len(c.TransferRules))
	for i, r := range c.TransferRules {
		out.TransferRules[i] = r
		if r.Conditions.MinOrderAmount != nil {
			v := *r.Conditions.MinOrderAmount
			out.TransferRules[i].Conditions.MinOrderAmount = &v
		}
	}
	out.BusinessHours.Days = append([]string(nil), c.BusinessHours.Days...)
	out.MenuOverrides = make(map[string]MenuOverride, len(c.MenuOverrides))
	for id, ov := range c.MenuOverrides {
		cp := ov
		if ov.Available != nil {
			b := *ov.Available
			cp.Available = &b
		}
		if ov.Price != nil {
			p := *ov.Price
			cp.Price = &p
		}
		out.MenuOverrides[id] = cp
	}
	out.RecommendationWeights = make(map[string]string, len(c.RecommendationWeights))
	for id, w := range c.RecommendationWeights {
		out.RecommendationWeights[id] = w
	}
	return out
}
