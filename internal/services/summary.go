// Package services – human summaries
//
// Builds the operator-facing one-line summary returned with every command
// response. Summaries are rendered in the language the command was written
// in (Chinese or English) and describe the effect of the change, not the
// internals.
package services

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/erichecan/AIrest/internal/domain"
)

// supportedLangs is the closed set of summary languages; English wins for
// anything the matcher cannot place.
var supportedLangs = language.NewMatcher([]language.Tag{
	language.English,
	language.Chinese,
})

// isChinese reports whether the intent's detected language resolves to
// Chinese under the summary language matcher.
func isChinese(lang string) bool {
	tag, _ := language.MatchStrings(supportedLangs, lang)
	base, _ := tag.Base()
	return base.String() == "zh"
}

// Summarize renders the applied-effect summary for an intent from its typed
// payload. Intents without a payload fall back to a generic line.
func Summarize(intent *domain.Intent) string {
	zh := isChinese(intent.Language)

	switch p := intent.Parsed.(type) {
	case domain.TransferRuleUpsertPayload:
		if zh {
			return fmt.Sprintf("来电将按 %s 规则转接到 %s。", triggerZH(p.Trigger), p.PhoneNumber)
		}
		return fmt.Sprintf("Calls will transfer to %s (trigger: %s).", p.PhoneNumber, p.Trigger)

	case domain.TransferRuleDeletePayload:
		if zh {
			return "已移除转接规则。"
		}
		return "Transfer rule removed."

	case domain.HandoffPolicySetPayload:
		if zh {
			return "人工接管策略已更新。"
		}
		return "Human handoff policy updated."

	case domain.BusinessHoursSetPayload:
		if zh {
			return fmt.Sprintf("营业时间更新为 %s - %s。", p.OpenTime, p.CloseTime)
		}
		return fmt.Sprintf("Business hours updated to %s - %s.", p.OpenTime, p.CloseTime)

	case domain.AvailabilitySetPayload:
		if zh {
			if p.Available {
				return fmt.Sprintf("菜品「%s」已恢复上架。", p.Item.Name)
			}
			return fmt.Sprintf("菜品「%s」已暂停售卖。", p.Item.Name)
		}
		if p.Available {
			return fmt.Sprintf("Item %q is back on the menu.", p.Item.Name)
		}
		return fmt.Sprintf("Item %q is paused.", p.Item.Name)

	case domain.PriceSetPayload:
		if zh {
			return fmt.Sprintf("菜品「%s」价格已改为 %s %s。", p.Item.Name, p.NewPrice.StringFixed(2), p.Currency)
		}
		return fmt.Sprintf("Updated %q price to %s %s.", p.Item.Name, p.NewPrice.StringFixed(2), p.Currency)

	case domain.RecommendationWeightPayload:
		if p.Item != nil {
			if zh {
				return fmt.Sprintf("已提高「%s」的推荐权重。", p.Item.Name)
			}
			return fmt.Sprintf("Recommendation weight for %q set to %s.", p.Item.Name, p.Weight)
		}
		if zh {
			return "推荐策略已更新。"
		}
		return "Recommendation weighting updated."

	case domain.OrderQueryPayload:
		if zh {
			return "订单查询结果已生成。"
		}
		return "Order query results ready."

	case domain.UndoPayload:
		if zh {
			return "已回滚最近一次配置变更。"
		}
		return "Rolled back the most recent config change."
	}

	if zh {
		return "指令已处理。"
	}
	return "Command processed."
}

// clarificationSummary is returned when parsing produced validation errors
// and the command cannot be applied as-is.
func clarificationSummary(lang string) string {
	if isChinese(lang) {
		return "无法直接执行，请补充说明后重试。"
	}
	return "Need clarification before this command can be applied."
}

// confirmationSummary asks the operator to confirm a risky change.
func confirmationSummary(intent *domain.Intent) string {
	if isChinese(intent.Language) {
		return "该操作需要确认：" + Summarize(intent)
	}
	return "Please confirm: " + Summarize(intent)
}

// dryRunSummary previews the effect without applying it.
func dryRunSummary(intent *domain.Intent) string {
	if isChinese(intent.Language) {
		return "预览（未生效）：" + Summarize(intent)
	}
	return "Dry run (not applied): " + Summarize(intent)
}

// rejectedSummary reports a failed execution.
func rejectedSummary(lang string) string {
	if isChinese(lang) {
		return "执行失败，配置未变更。"
	}
	return "Execution failed; config was not changed."
}

func triggerZH(trigger string) string {
	if trigger == "after_hours" {
		return "营业时间外"
	}
	return "所有来电"
}
