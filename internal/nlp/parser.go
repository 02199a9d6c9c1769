// Package nlp classifies free-form operator commands into structured
// intents. Classification is deterministic and keyword-based: an ordered
// table of matchers is evaluated in a fixed priority and the first matcher
// that recognizes the text wins. The parser performs no I/O; menu item
// resolution goes through the read-only MenuMatcher it is handed.
package nlp

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erichecan/AIrest/internal/domain"
)

// MenuMatcher resolves free text to the closest menu item with a match
// score in [0,1]. A nil item means nothing matched.
type MenuMatcher interface {
	FindBestMatch(text string) (*domain.MenuItem, float64)
}

// Input carries one raw command plus its addressing context.
type Input struct {
	Text         string
	TenantID     string
	RestaurantID int
	ActorID      string
	Source       string
	LanguageHint string
}

// outcome is what a matcher produces for a recognized command.
type outcome struct {
	intentType           domain.IntentType
	confidence           float64
	risk                 domain.RiskLevel
	requiresConfirmation bool
	payload              domain.IntentPayload
	errors               []string
}

// parseContext is the shared scratch state matchers read from.
type parseContext struct {
	text  string // trimmed original
	lower string // lowercased for latin keyword checks
	lang  string
	menu  MenuMatcher
}

// matcher recognizes one command family. Match must be cheap and
// side-effect free; Extract builds the payload and scoring.
type matcher interface {
	Match(ctx *parseContext) bool
	Extract(ctx *parseContext) outcome
}

// Parser classifies commands. The zero value is not usable; construct with
// NewParser so the matcher table carries the required priority order.
type Parser struct {
	matchers []matcher
}

// NewParser returns a Parser with the full matcher table. Order is load
// bearing: an undo phrase must never be mis-classified as an order query
// even when both keyword families occur in the same sentence.
func NewParser() *Parser {
	return &Parser{matchers: []matcher{
		undoMatcher{},
		orderQueryMatcher{},
		transferRuleMatcher{},
		businessHoursMatcher{},
		availabilityMatcher{},
		priceMatcher{},
		recommendationMatcher{},
	}}
}

// Parse classifies in.Text and returns a fully populated, unpersisted
// Intent row. The typed payload variant is attached as Intent.Parsed and
// its JSON encoding as Intent.Payload. Parse never returns an error:
// unrecognizable input becomes a clarification_needed intent.
func (p *Parser) Parse(in Input, menu MenuMatcher) *domain.Intent {
	text := strings.TrimSpace(in.Text)
	ctx := &parseContext{
		text:  text,
		lower: strings.ToLower(text),
		lang:  DetectLanguage(text, in.LanguageHint),
		menu:  menu,
	}

	out := outcome{
		intentType: domain.IntentClarificationNeeded,
		confidence: 0.4,
		risk:       domain.RiskLow,
		errors:     []string{"Command not recognized"},
	}
	for _, m := range p.matchers {
		if m.Match(ctx) {
			out = m.Extract(ctx)
			break
		}
	}

	now := time.Now().UTC()
	intent := &domain.Intent{
		IntentID:             NewIntentID(),
		TenantID:             in.TenantID,
		RestaurantID:         in.RestaurantID,
		ActorID:              in.ActorID,
		Source:               in.Source,
		Language:             ctx.lang,
		RawText:              text,
		IntentType:           out.intentType,
		Confidence:           round3(out.confidence),
		RiskLevel:            out.risk,
		RequiresConfirmation: out.requiresConfirmation,
		EffectiveStart:       now,
		EffectiveEnd:         nil,
		EffectiveTimezone:    domain.DefaultTimezone,
		ValidationErrors:     out.errors,
		Status:               domain.StatusParsed,
		Parsed:               out.payload,
	}
	if intent.ValidationErrors == nil {
		intent.ValidationErrors = []string{}
	}
	if out.payload != nil {
		intent.Payload = domain.MustJSON(out.payload)
	} else {
		intent.Payload = domain.JSONText("{}")
	}
	return intent
}

// NewIntentID mints an opaque intent token.
func NewIntentID() string {
	return "int_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:18]
}

// round3 rounds to 3 decimals and clamps into [0,1].
func round3(v float64) float64 {
	v = math.Round(v*1000) / 1000
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
