package nlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported language codes. Anything else falls back to the primary.
const (
	LangEnglish = "en"
	LangChinese = "zh"
)

var (
	cjkRE   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	phoneRE = regexp.MustCompile(`(\+?\d[\d\-\s()]{6,}\d)`)
	digitRE = regexp.MustCompile(`\D`)
	// Hour ranges: "10 to 22", "10-22", "11am to 9pm", "10点到22点",
	// optionally with minutes which are dropped (hour-only granularity).
	timeRangeRE = regexp.MustCompile(`(?i)(\d{1,2})(?::\d{2})?\s*(am|pm)?\s*(?:点)?\s*(?:到|-|to)\s*(\d{1,2})(?::\d{2})?\s*(am|pm)?`)
	priceRE     = regexp.MustCompile(`(\d+(?:\.\d{1,2})?)`)
)

// DetectLanguage picks the command language. An explicit hint wins when it
// is a supported code; otherwise the presence of CJK code points selects
// Chinese and everything else is English.
func DetectLanguage(text, hint string) string {
	if hint == LangEnglish || hint == LangChinese {
		return hint
	}
	if cjkRE.MatchString(text) {
		return LangChinese
	}
	return LangEnglish
}

// NormalizePhone converts a raw phone fragment into E.164-like form.
// 10 digits get the +1 country code, 11 digits with a leading trunk "1"
// get a plus sign, and anything else is accepted only when the source text
// already starts with "+". Unresolvable input returns "".
func NormalizePhone(raw string) string {
	digits := digitRE.ReplaceAllString(raw, "")
	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case strings.HasPrefix(strings.TrimSpace(raw), "+"):
		return "+" + digits
	default:
		return ""
	}
}

// ExtractPhone finds the first phone-like digit run (8+ characters,
// separators allowed) and normalizes it. Returns "" when no usable number
// is present.
func ExtractPhone(text string) string {
	m := phoneRE.FindString(text)
	if m == "" {
		return ""
	}
	return NormalizePhone(m)
}

// ParseTimeRange extracts an "H[:MM] to H[:MM]" style range (or its CJK
// equivalent) at hour granularity. Hours outside 0..23 are rejected.
func ParseTimeRange(text string) (open, close string, ok bool) {
	m := timeRangeRE.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		return "", "", false
	}
	start = applyMeridiem(start, m[2])
	end = applyMeridiem(end, m[4])
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return "", "", false
	}
	return fmt.Sprintf("%02d:00", start), fmt.Sprintf("%02d:00", end), true
}

// applyMeridiem converts a 12-hour clock hour to 24-hour form.
func applyMeridiem(hour int, meridiem string) int {
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

// ParsePrice extracts the first numeric value (up to 2 decimal places).
func ParsePrice(text string) (decimal.Decimal, bool) {
	m := priceRE.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
