// Package services – config apply
//
// This file implements the pure transition from a current runtime config plus
// a parsed intent to the next runtime config. It never touches persistence:
// CommandService wraps it in a transaction together with the snapshot and
// change-ledger writes.
package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/erichecan/AIrest/internal/domain"
)

// ApplyIntent returns the config that results from applying intent to current.
// The input config is never mutated; callers receive a deep copy with the
// change folded in. ErrUnsupportedIntent is returned for intent types that do
// not mutate config (undo, order queries, clarifications).
func ApplyIntent(current domain.RuntimeConfig, intent *domain.Intent) (domain.RuntimeConfig, error) {
	next := current.Clone()

	switch p := intent.Parsed.(type) {
	case domain.TransferRuleUpsertPayload:
		next.TransferRules = append(next.TransferRules, domain.TransferRule{
			RuleID:      newRuleID(),
			Trigger:     p.Trigger,
			PhoneNumber: p.PhoneNumber,
			Priority:    p.Priority,
			Conditions:  p.Conditions,
		})

	case domain.TransferRuleDeletePayload:
		if p.RuleID == "" {
			next.TransferRules = []domain.TransferRule{}
			break
		}
		kept := next.TransferRules[:0]
		for _, r := range next.TransferRules {
			if r.RuleID != p.RuleID {
				kept = append(kept, r)
			}
		}
		next.TransferRules = kept

	case domain.HandoffPolicySetPayload:
		for k, v := range p.Fields {
			switch k {
			case "user_requests_human":
				if b, ok := v.(bool); ok {
					next.HandoffPolicy.UserRequestsHuman = b
				}
			case "busy_line_policy":
				if s, ok := v.(string); ok {
					next.HandoffPolicy.BusyLinePolicy = s
				}
			case "default_number":
				if s, ok := v.(string); ok {
					next.HandoffPolicy.DefaultNumber = s
				}
			}
		}

	case domain.BusinessHoursSetPayload:
		next.BusinessHours = domain.BusinessHours{
			Days:      append([]string(nil), p.Days...),
			OpenTime:  p.OpenTime,
			CloseTime: p.CloseTime,
			Timezone:  p.Timezone,
		}

	case domain.AvailabilitySetPayload:
		ov := next.MenuOverrides[p.Item.ID]
		avail := p.Available
		ov.Available = &avail
		ov.Reason = p.Reason
		next.MenuOverrides[p.Item.ID] = ov

	case domain.PriceSetPayload:
		ov := next.MenuOverrides[p.Item.ID]
		price := p.NewPrice
		ov.Price = &price
		ov.Currency = p.Currency
		next.MenuOverrides[p.Item.ID] = ov

	case domain.RecommendationWeightPayload:
		// Without a resolved item there is nothing to weight; the change is
		// still recorded, with identical before/after states.
		if p.Item != nil {
			next.RecommendationWeights[p.Item.ID] = p.Weight
		}

	default:
		return next, ErrUnsupportedIntent
	}

	return next, nil
}

// newRuleID mints a short identifier for transfer rules, e.g. "rule_3f9a1c02d4".
func newRuleID() string {
	return "rule_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
