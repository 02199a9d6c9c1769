package nlp

import (
	"strings"

	"github.com/erichecan/AIrest/internal/domain"
)

// containsAny reports whether s contains at least one of the needles.
func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// itemRef builds the payload reference for a matched item, preferring the
// localized name for the detected language.
func itemRef(item *domain.MenuItem, lang string) domain.ItemRef {
	name := item.NameEN
	if lang == "zh" && item.NameZH != "" {
		name = item.NameZH
	}
	return domain.ItemRef{ID: item.ID, Name: name}
}

// --- 1. undo / rollback ---

type undoMatcher struct{}

func (undoMatcher) Match(ctx *parseContext) bool {
	return containsAny(ctx.text, "撤回", "回滚") || strings.Contains(ctx.lower, "undo")
}

func (undoMatcher) Extract(ctx *parseContext) outcome {
	return outcome{
		intentType: domain.IntentUndo,
		confidence: 0.98,
		risk:       domain.RiskLow,
		payload:    domain.UndoPayload{},
	}
}

// --- 2. order query ---

type orderQueryMatcher struct{}

func (orderQueryMatcher) Match(ctx *parseContext) bool {
	return containsAny(ctx.text, "订单", "查单") || strings.Contains(ctx.lower, "order")
}

func (orderQueryMatcher) Extract(ctx *parseContext) outcome {
	status := []string{"confirmed"}
	if containsAny(ctx.text, "没确认", "未确认") || containsAny(ctx.lower, "pending", "unconfirmed") {
		status = []string{"pending"}
	}
	aggregation := "list"
	if containsAny(ctx.text, "多少", "几") || strings.Contains(ctx.lower, "count") ||
		strings.Contains(ctx.lower, "how many") {
		aggregation = "count"
	}
	var hasTransfer *bool
	if strings.Contains(ctx.text, "转人工") {
		t := true
		hasTransfer = &t
	}
	return outcome{
		intentType: domain.IntentOrderQuery,
		confidence: 0.9,
		risk:       domain.RiskLow,
		payload: domain.OrderQueryPayload{
			Filters: domain.OrderQueryFilters{
				Status:      status,
				HasTransfer: hasTransfer,
			},
			Aggregation: aggregation,
			Limit:       20,
		},
	}
}

// --- 3. transfer routing ---

type transferRuleMatcher struct{}

func (transferRuleMatcher) Match(ctx *parseContext) bool {
	if !strings.Contains(ctx.text, "转接") && !strings.Contains(ctx.lower, "transfer") {
		return false
	}
	return ExtractPhone(ctx.text) != ""
}

func (transferRuleMatcher) Extract(ctx *parseContext) outcome {
	trigger := "always"
	if strings.Contains(ctx.text, "后") || strings.Contains(ctx.lower, "after") {
		trigger = "after_hours"
	}
	return outcome{
		intentType:           domain.IntentTransferRuleUpsert,
		confidence:           0.94,
		risk:                 domain.RiskHigh,
		requiresConfirmation: true,
		payload: domain.TransferRuleUpsertPayload{
			Trigger:     trigger,
			PhoneNumber: ExtractPhone(ctx.text),
			Priority:    100,
			Conditions:  domain.RuleConditions{Language: "any"},
		},
	}
}

// --- 4. business hours ---

type businessHoursMatcher struct{}

func (businessHoursMatcher) Match(ctx *parseContext) bool {
	return strings.Contains(ctx.text, "营业时间") ||
		containsAny(ctx.lower, "business hours", "hours")
}

func (businessHoursMatcher) Extract(ctx *parseContext) outcome {
	open, close, ok := ParseTimeRange(ctx.text)
	if !ok {
		return outcome{
			intentType:           domain.IntentBusinessHoursSet,
			confidence:           0.7,
			risk:                 domain.RiskHigh,
			requiresConfirmation: true,
			errors:               []string{"Could not parse business hour range"},
		}
	}
	return outcome{
		intentType:           domain.IntentBusinessHoursSet,
		confidence:           0.92,
		risk:                 domain.RiskHigh,
		requiresConfirmation: true,
		payload: domain.BusinessHoursSetPayload{
			Days:      append([]string(nil), domain.AllWeekDays...),
			OpenTime:  open,
			CloseTime: close,
			Timezone:  domain.DefaultTimezone,
		},
	}
}

// --- 5. item availability ---

type availabilityMatcher struct{}

func (availabilityMatcher) Match(ctx *parseContext) bool {
	return containsAny(ctx.text, "暂停", "下架", "恢复", "上架") ||
		containsAny(ctx.lower, "pause", "resume", "sold out", "back in stock", "available")
}

func (availabilityMatcher) Extract(ctx *parseContext) outcome {
	item, score := ctx.menu.FindBestMatch(ctx.text)
	confidence := clamp(score, 0.6, 0.95)
	out := outcome{
		intentType:           domain.IntentItemAvailabilitySet,
		confidence:           confidence,
		risk:                 domain.RiskMedium,
		requiresConfirmation: confidence < 0.9,
	}
	if item == nil {
		out.errors = []string{"No menu item matched"}
		return out
	}
	pausing := containsAny(ctx.text, "暂停", "下架") ||
		containsAny(ctx.lower, "pause", "sold out")
	reason := "manual_update"
	if pausing {
		reason = "sold_out"
	}
	out.payload = domain.AvailabilitySetPayload{
		Item:      itemRef(item, ctx.lang),
		Available: !pausing,
		Reason:    reason,
	}
	return out
}

// --- 6. item price ---

type priceMatcher struct{}

func (priceMatcher) Match(ctx *parseContext) bool {
	return strings.Contains(ctx.text, "价格") || strings.Contains(ctx.lower, "price")
}

func (priceMatcher) Extract(ctx *parseContext) outcome {
	item, _ := ctx.menu.FindBestMatch(ctx.text)
	price, priceOK := ParsePrice(ctx.text)

	out := outcome{
		intentType:           domain.IntentItemPriceSet,
		risk:                 domain.RiskHigh,
		requiresConfirmation: true,
		confidence:           0.65,
	}
	if item == nil {
		out.errors = append(out.errors, "No menu item matched for price update")
	}
	if !priceOK {
		out.errors = append(out.errors, "No price value found")
	}
	if item != nil && priceOK {
		out.confidence = 0.93
		out.payload = domain.PriceSetPayload{
			Item:        itemRef(item, ctx.lang),
			NewPrice:    price,
			Currency:    "CAD",
			EffectiveAt: "immediate",
		}
	}
	return out
}

// --- 7. recommendation weight ---

type recommendationMatcher struct{}

func (recommendationMatcher) Match(ctx *parseContext) bool {
	return strings.Contains(ctx.text, "推荐") || strings.Contains(ctx.lower, "recommend")
}

func (recommendationMatcher) Extract(ctx *parseContext) outcome {
	payload := domain.RecommendationWeightPayload{
		Weight:      "high",
		EffectiveAt: "immediate",
	}
	if item, _ := ctx.menu.FindBestMatch(ctx.text); item != nil {
		ref := itemRef(item, ctx.lang)
		payload.Item = &ref
	}
	return outcome{
		intentType: domain.IntentRecommendationWeight,
		confidence: 0.88,
		risk:       domain.RiskLow,
		payload:    payload,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
