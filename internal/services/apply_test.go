package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erichecan/AIrest/internal/domain"
)

func intentWith(payload domain.IntentPayload) *domain.Intent {
	return &domain.Intent{IntentID: "int_test", Parsed: payload}
}

func baseConfig() domain.RuntimeConfig {
	return domain.DefaultRuntimeConfig("+14155550100")
}

func TestApplyIntent_TransferRuleUpsert(t *testing.T) {
	cur := baseConfig()
	next, err := ApplyIntent(cur, intentWith(domain.TransferRuleUpsertPayload{
		Trigger:     "after_hours",
		PhoneNumber: "+14155550123",
		Priority:    100,
		Conditions:  domain.RuleConditions{Language: "any"},
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(next.TransferRules) != 1 {
		t.Fatalf("rules = %d", len(next.TransferRules))
	}
	r := next.TransferRules[0]
	if !strings.HasPrefix(r.RuleID, "rule_") {
		t.Fatalf("rule id = %q", r.RuleID)
	}
	if r.Trigger != "after_hours" || r.PhoneNumber != "+14155550123" {
		t.Fatalf("rule = %+v", r)
	}
	// input untouched
	if len(cur.TransferRules) != 0 {
		t.Fatalf("input config mutated")
	}
}

func TestApplyIntent_TransferRuleDelete(t *testing.T) {
	cur := baseConfig()
	cur.TransferRules = []domain.TransferRule{
		{RuleID: "rule_a", Trigger: "always"},
		{RuleID: "rule_b", Trigger: "after_hours"},
	}

	// targeted delete
	next, err := ApplyIntent(cur, intentWith(domain.TransferRuleDeletePayload{RuleID: "rule_a"}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(next.TransferRules) != 1 || next.TransferRules[0].RuleID != "rule_b" {
		t.Fatalf("rules after delete = %+v", next.TransferRules)
	}

	// empty id clears everything
	next, err = ApplyIntent(cur, intentWith(domain.TransferRuleDeletePayload{}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(next.TransferRules) != 0 {
		t.Fatalf("rules not cleared: %+v", next.TransferRules)
	}
}

func TestApplyIntent_HandoffPolicyMerge(t *testing.T) {
	cur := baseConfig()
	next, err := ApplyIntent(cur, intentWith(domain.HandoffPolicySetPayload{
		Fields: map[string]any{
			"user_requests_human": false,
			"busy_line_policy":    "voicemail",
			"ignored_key":         "x",
		},
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.HandoffPolicy.UserRequestsHuman {
		t.Fatalf("user_requests_human not merged")
	}
	if next.HandoffPolicy.BusyLinePolicy != "voicemail" {
		t.Fatalf("busy_line_policy = %q", next.HandoffPolicy.BusyLinePolicy)
	}
	// untouched field survives the merge
	if next.HandoffPolicy.DefaultNumber != "+14155550100" {
		t.Fatalf("default_number clobbered: %q", next.HandoffPolicy.DefaultNumber)
	}
}

func TestApplyIntent_BusinessHoursReplace(t *testing.T) {
	cur := baseConfig()
	next, err := ApplyIntent(cur, intentWith(domain.BusinessHoursSetPayload{
		Days:      []string{"mon", "tue"},
		OpenTime:  "11:00",
		CloseTime: "21:00",
		Timezone:  "America/Vancouver",
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	bh := next.BusinessHours
	if bh.OpenTime != "11:00" || bh.CloseTime != "21:00" || bh.Timezone != "America/Vancouver" {
		t.Fatalf("hours = %+v", bh)
	}
	if len(bh.Days) != 2 {
		t.Fatalf("days = %#v", bh.Days)
	}
}

func TestApplyIntent_AvailabilityPreservesPriceOverride(t *testing.T) {
	cur := baseConfig()
	price := decimal.NewFromFloat(9.99)
	cur.MenuOverrides["item_1"] = domain.MenuOverride{Price: &price, Currency: "CAD"}

	next, err := ApplyIntent(cur, intentWith(domain.AvailabilitySetPayload{
		Item:      domain.ItemRef{ID: "item_1", Name: "Fried Rice"},
		Available: false,
		Reason:    "sold_out",
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ov := next.MenuOverrides["item_1"]
	if ov.Available == nil || *ov.Available {
		t.Fatalf("availability not set: %+v", ov)
	}
	if ov.Reason != "sold_out" {
		t.Fatalf("reason = %q", ov.Reason)
	}
	if ov.Price == nil || !ov.Price.Equal(price) {
		t.Fatalf("price override lost: %+v", ov)
	}
}

func TestApplyIntent_PricePreservesAvailabilityOverride(t *testing.T) {
	cur := baseConfig()
	avail := false
	cur.MenuOverrides["item_1"] = domain.MenuOverride{Available: &avail, Reason: "sold_out"}

	next, err := ApplyIntent(cur, intentWith(domain.PriceSetPayload{
		Item:     domain.ItemRef{ID: "item_1", Name: "Fried Rice"},
		NewPrice: decimal.NewFromFloat(15.99),
		Currency: "CAD",
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ov := next.MenuOverrides["item_1"]
	if ov.Price == nil || !ov.Price.Equal(decimal.NewFromFloat(15.99)) || ov.Currency != "CAD" {
		t.Fatalf("price not set: %+v", ov)
	}
	if ov.Available == nil || *ov.Available {
		t.Fatalf("availability override lost: %+v", ov)
	}
}

func TestApplyIntent_RecommendationWeight(t *testing.T) {
	cur := baseConfig()

	// item-scoped
	next, err := ApplyIntent(cur, intentWith(domain.RecommendationWeightPayload{
		Item:   &domain.ItemRef{ID: "item_1", Name: "Fried Rice"},
		Weight: "high",
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.RecommendationWeights["item_1"] != "high" {
		t.Fatalf("weights = %#v", next.RecommendationWeights)
	}

	// no resolved item: the weights map stays untouched
	next, err = ApplyIntent(cur, intentWith(domain.RecommendationWeightPayload{Weight: "low"}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(next.RecommendationWeights) != len(cur.RecommendationWeights) {
		t.Fatalf("weights = %#v", next.RecommendationWeights)
	}
	for k, v := range cur.RecommendationWeights {
		if next.RecommendationWeights[k] != v {
			t.Fatalf("weight %q changed: %#v", k, next.RecommendationWeights)
		}
	}
}

func TestApplyIntent_UnsupportedTypes(t *testing.T) {
	cur := baseConfig()
	for _, payload := range []domain.IntentPayload{
		domain.UndoPayload{},
		domain.OrderQueryPayload{},
		nil,
	} {
		if _, err := ApplyIntent(cur, intentWith(payload)); !errors.Is(err, ErrUnsupportedIntent) {
			t.Fatalf("payload %T: err = %v", payload, err)
		}
	}
}
