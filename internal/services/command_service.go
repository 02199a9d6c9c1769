// Package services – CommandService
//
// CommandService runs the full lifecycle of a natural-language command:
// parse, persist the intent, gate on validation and confirmation, then
// either roll back (undo), aggregate (order query), or apply the change
// inside one transaction together with the snapshot, ledger, and audit
// writes. Persistence failures surface as rejected results, never as
// half-applied state.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/menu"
	"github.com/erichecan/AIrest/internal/nlp"
	"github.com/erichecan/AIrest/internal/repo"
)

// maxApplyRetries bounds the optimistic-concurrency retry loop. Conflicts
// are rare (two operators editing the same restaurant at once), so a small
// bound is plenty.
const maxApplyRetries = 3

// CommandRequest is one natural-language command to execute.
type CommandRequest struct {
	Text           string
	TenantID       string
	RestaurantID   int
	ActorID        string
	Source         string
	LanguageHint   string
	Confirm        bool
	DryRun         bool
	IdempotencyKey string
}

// CommandResult is the operator-facing outcome of a command.
type CommandResult struct {
	IntentID             string            `json:"intent_id"`
	IntentType           string            `json:"intent_type"`
	Status               string            `json:"status"`
	Confidence           float64           `json:"confidence"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	HumanSummary         string            `json:"human_summary"`
	ChangeID             string            `json:"change_id,omitempty"`
	UndoToken            string            `json:"undo_token,omitempty"`
	Errors               []string          `json:"errors"`
	QueryResult          *OrderQueryResult `json:"query_result,omitempty"`
}

// CommandService orchestrates command execution.
type CommandService struct {
	// DB is the GORM handle used for all persistence.
	DB *gorm.DB
	// Parser classifies raw text into intents.
	Parser *nlp.Parser
	// Menu resolves fuzzy item references per restaurant.
	Menu *menu.Catalog
	// Store is the config read path; writers invalidate it.
	Store *ConfigStore
	// Undo performs rollbacks for ops.undo intents.
	Undo *UndoService
	// Orders executes order.query aggregations.
	Orders *OrderQueryService
}

// NewCommandService wires a CommandService from its collaborators.
func NewCommandService(db *gorm.DB, parser *nlp.Parser, catalog *menu.Catalog, store *ConfigStore, undo *UndoService, orders *OrderQueryService) *CommandService {
	return &CommandService{
		DB:     db,
		Parser: parser,
		Menu:   catalog,
		Store:  store,
		Undo:   undo,
		Orders: orders,
	}
}

// Execute parses and runs one command. Validation problems, confirmation
// gates, and failed executions all come back as results with the matching
// status; an error return means the request never got far enough to record
// an intent.
func (s *CommandService) Execute(ctx context.Context, req CommandRequest) (*CommandResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyCommand
	}

	// A repeated idempotency key replays the original outcome without
	// re-running anything.
	if req.IdempotencyKey != "" {
		if res, ok, err := s.replayByKey(ctx, req.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			return res, nil
		}
	}

	idx, err := s.Menu.IndexFor(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	intent := s.Parser.Parse(nlp.Input{
		Text:         req.Text,
		TenantID:     req.TenantID,
		RestaurantID: req.RestaurantID,
		ActorID:      req.ActorID,
		Source:       req.Source,
		LanguageHint: req.LanguageHint,
	}, idx)
	if err := repo.CreateIntent(ctx, s.DB, intent); err != nil {
		return nil, err
	}

	return s.dispatch(ctx, intent, req.Confirm, req.DryRun, req.IdempotencyKey), nil
}

// Confirm re-runs a pending intent with the confirmation gate open. The
// stored raw text is re-parsed so the typed payload is rebuilt exactly as it
// was scored the first time.
func (s *CommandService) Confirm(ctx context.Context, intentID, actorID string) (*CommandResult, error) {
	stored, err := repo.GetIntent(ctx, s.DB, intentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	if stored.Status != domain.StatusNeedsConfirmation {
		return nil, ErrIntentNotConfirmable
	}

	idx, err := s.Menu.IndexFor(ctx, stored.RestaurantID)
	if err != nil {
		return nil, err
	}
	reparsed := s.Parser.Parse(nlp.Input{
		Text:         stored.RawText,
		TenantID:     stored.TenantID,
		RestaurantID: stored.RestaurantID,
		LanguageHint: stored.Language,
	}, idx)
	stored.Parsed = reparsed.Parsed
	if actorID != "" {
		stored.ActorID = actorID
	}
	return s.dispatch(ctx, stored, true, false, ""), nil
}

// dispatch runs the post-parse state machine for one persisted intent.
func (s *CommandService) dispatch(ctx context.Context, intent *domain.Intent, confirm, dryRun bool, idemKey string) *CommandResult {
	res := &CommandResult{
		IntentID:             intent.IntentID,
		IntentType:           string(intent.IntentType),
		Confidence:           intent.Confidence,
		RequiresConfirmation: intent.RequiresConfirmation,
		Errors:               append([]string{}, intent.ValidationErrors...),
	}

	if len(intent.ValidationErrors) > 0 {
		s.moveStatus(ctx, intent, domain.StatusClarificationNeeded)
		res.Status = domain.StatusClarificationNeeded
		res.HumanSummary = clarificationSummary(intent.Language)
		return res
	}

	if dryRun {
		s.moveStatus(ctx, intent, domain.StatusDryRun)
		res.Status = domain.StatusDryRun
		res.HumanSummary = dryRunSummary(intent)
		return res
	}

	if intent.RequiresConfirmation && !confirm {
		s.moveStatus(ctx, intent, domain.StatusNeedsConfirmation)
		res.Status = domain.StatusNeedsConfirmation
		res.HumanSummary = confirmationSummary(intent)
		return res
	}

	switch intent.IntentType {
	case domain.IntentUndo:
		return s.runUndo(ctx, intent, res)
	case domain.IntentOrderQuery:
		return s.runOrderQuery(ctx, intent, res)
	default:
		return s.runApply(ctx, intent, res, idemKey)
	}
}

// runUndo executes an ops.undo intent. "Nothing to undo" is a rejection the
// operator hears about, not a server error.
func (s *CommandService) runUndo(ctx context.Context, intent *domain.Intent, res *CommandResult) *CommandResult {
	target := ""
	if p, ok := intent.Parsed.(domain.UndoPayload); ok {
		target = p.ChangeID
	}
	change, err := s.Undo.Undo(ctx, UndoRequest{
		TenantID:     intent.TenantID,
		RestaurantID: intent.RestaurantID,
		ActorID:      intent.ActorID,
		Source:       intent.Source,
		ChangeID:     target,
	})
	if errors.Is(err, ErrNoReversibleChange) {
		s.moveStatus(ctx, intent, domain.StatusRejected)
		res.Status = domain.StatusRejected
		res.Errors = append(res.Errors, "No reversible change found.")
		res.HumanSummary = rejectedSummary(intent.Language)
		return res
	}
	if err != nil {
		return s.reject(ctx, intent, res, err)
	}

	s.moveStatus(ctx, intent, domain.StatusApplied)
	res.Status = domain.StatusApplied
	res.ChangeID = change.ChangeID
	res.HumanSummary = Summarize(intent)
	return res
}

// runOrderQuery executes an order.query intent and audits the read.
func (s *CommandService) runOrderQuery(ctx context.Context, intent *domain.Intent, res *CommandResult) *CommandResult {
	payload, ok := intent.Parsed.(domain.OrderQueryPayload)
	if !ok {
		return s.reject(ctx, intent, res, ErrUnsupportedIntent)
	}
	out, err := s.Orders.Query(ctx, intent.RestaurantID, payload)
	if err != nil {
		return s.reject(ctx, intent, res, err)
	}
	if err := repo.AppendAudit(ctx, s.DB, &domain.AuditLog{
		TenantID:     intent.TenantID,
		RestaurantID: intent.RestaurantID,
		ActorID:      intent.ActorID,
		Source:       intent.Source,
		EventType:    "order.query",
		Detail: map[string]any{
			"intent_id":   intent.IntentID,
			"aggregation": out.Aggregation,
			"count":       out.Count,
		},
	}); err != nil {
		return s.reject(ctx, intent, res, err)
	}

	s.moveStatus(ctx, intent, domain.StatusApplied)
	res.Status = domain.StatusApplied
	res.QueryResult = out
	res.HumanSummary = Summarize(intent)
	return res
}

// runApply commits a config mutation: optimistic read, pure apply, then a
// single transaction appending the snapshot, the ledger row, the intent
// status flip, and the audit entry. A snapshot that advanced underneath us
// triggers a bounded re-read-and-retry.
func (s *CommandService) runApply(ctx context.Context, intent *domain.Intent, res *CommandResult, idemKey string) *CommandResult {
	var keyPtr *string
	if idemKey != "" {
		keyPtr = &idemKey
	}

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		cur, err := s.Store.Current(ctx, intent.TenantID, intent.RestaurantID)
		if err != nil {
			return s.reject(ctx, intent, res, err)
		}
		next, err := ApplyIntent(cur.Config, intent)
		if err != nil {
			return s.reject(ctx, intent, res, err)
		}

		now := time.Now().UTC()
		change := &domain.ConfigChange{
			ChangeID:       repo.NewChangeID(),
			TenantID:       intent.TenantID,
			RestaurantID:   intent.RestaurantID,
			IntentID:       intent.IntentID,
			ActionType:     intent.IntentType,
			Payload:        intent.Payload,
			PreviousState:  cur.Config,
			NewState:       next,
			Applied:        true,
			AppliedAt:      &now,
			IdempotencyKey: keyPtr,
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			latest, err := repo.LatestSnapshotID(ctx, tx, intent.TenantID, intent.RestaurantID)
			if err != nil {
				return err
			}
			if latest != cur.SnapshotID {
				return ErrConfigConflict
			}
			if err := repo.CreateChange(ctx, tx, change); err != nil {
				return err
			}
			if _, err := repo.CreateSnapshot(ctx, tx, intent.TenantID, intent.RestaurantID, next); err != nil {
				return err
			}
			if err := repo.UpdateIntentStatus(ctx, tx, intent.IntentID, domain.StatusApplied); err != nil {
				return err
			}
			return repo.AppendAudit(ctx, tx, &domain.AuditLog{
				TenantID:     intent.TenantID,
				RestaurantID: intent.RestaurantID,
				ActorID:      intent.ActorID,
				Source:       intent.Source,
				EventType:    "config.applied",
				Detail: map[string]any{
					"intent_id":   intent.IntentID,
					"change_id":   change.ChangeID,
					"action_type": string(intent.IntentType),
				},
			})
		})
		switch {
		case err == nil:
			s.Store.Invalidate(intent.TenantID, intent.RestaurantID)
			intent.Status = domain.StatusApplied
			res.Status = domain.StatusApplied
			res.ChangeID = change.ChangeID
			res.UndoToken = "undo_" + change.ChangeID
			res.HumanSummary = Summarize(intent)
			return res
		case errors.Is(err, ErrConfigConflict):
			s.Store.Invalidate(intent.TenantID, intent.RestaurantID)
			continue
		case errors.Is(err, repo.ErrDuplicate) && idemKey != "":
			// Raced another request carrying the same key; hand back its result.
			if replay, ok, rerr := s.replayByKey(ctx, idemKey); rerr == nil && ok {
				return replay
			}
			return s.reject(ctx, intent, res, err)
		default:
			return s.reject(ctx, intent, res, err)
		}
	}
	return s.reject(ctx, intent, res, ErrConfigConflict)
}

// replayByKey rebuilds the result of a previously applied command from its
// ledger row. ok is false when the key has never been used.
func (s *CommandService) replayByKey(ctx context.Context, key string) (*CommandResult, bool, error) {
	change, err := repo.GetChangeByIdempotencyKey(ctx, s.DB, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	res := &CommandResult{
		IntentID:   change.IntentID,
		IntentType: string(change.ActionType),
		Status:     domain.StatusApplied,
		ChangeID:   change.ChangeID,
		UndoToken:  "undo_" + change.ChangeID,
		Errors:     []string{},
	}
	intent, err := repo.GetIntent(ctx, s.DB, change.IntentID)
	if err != nil {
		res.HumanSummary = "Command processed."
		return res, true, nil
	}
	if idx, err := s.Menu.IndexFor(ctx, intent.RestaurantID); err == nil {
		intent.Parsed = s.Parser.Parse(nlp.Input{
			Text:         intent.RawText,
			LanguageHint: intent.Language,
		}, idx).Parsed
	}
	res.Confidence = intent.Confidence
	res.RequiresConfirmation = intent.RequiresConfirmation
	res.HumanSummary = Summarize(intent)
	return res, true, nil
}

// reject flips the intent to rejected and wraps the failure into the result.
func (s *CommandService) reject(ctx context.Context, intent *domain.Intent, res *CommandResult, cause error) *CommandResult {
	log.Error().Err(cause).
		Str("intent_id", intent.IntentID).
		Str("intent_type", string(intent.IntentType)).
		Msg("command execution failed")
	s.moveStatus(ctx, intent, domain.StatusRejected)
	res.Status = domain.StatusRejected
	res.Errors = append(res.Errors, cause.Error())
	res.HumanSummary = rejectedSummary(intent.Language)
	return res
}

// moveStatus persists a status transition, logging rather than failing when
// the write itself errors: the in-memory result is already decided.
func (s *CommandService) moveStatus(ctx context.Context, intent *domain.Intent, status string) {
	if err := repo.UpdateIntentStatus(ctx, s.DB, intent.IntentID, status); err != nil {
		log.Error().Err(err).
			Str("intent_id", intent.IntentID).
			Str("status", status).
			Msg("intent status update failed")
		return
	}
	intent.Status = status
}
