// Package services – UndoService
//
// Rolls back a ledger change by re-appending its previous_state as a brand
// new snapshot. History is never rewritten: the rolled-back change keeps its
// row, gains the rolled_back flag, and the rollback itself shows up in the
// audit trail as a config.rollback event.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/repo"
)

// UndoRequest identifies the rollback target. An empty ChangeID means "the
// most recent non-rolled-back change".
type UndoRequest struct {
	TenantID     string
	RestaurantID int
	ActorID      string
	Source       string
	ChangeID     string
}

// UndoService performs config rollbacks.
type UndoService struct {
	// DB is the GORM handle used for the rollback transaction.
	DB *gorm.DB
	// Store is invalidated after a successful rollback.
	Store *ConfigStore
}

// NewUndoService constructs an UndoService.
func NewUndoService(db *gorm.DB, store *ConfigStore) *UndoService {
	return &UndoService{DB: db, Store: store}
}

// Undo rolls back the targeted change and returns it. ErrNoReversibleChange
// is returned when nothing qualifies; callers surface that as a rejection,
// not a server error.
func (s *UndoService) Undo(ctx context.Context, req UndoRequest) (*domain.ConfigChange, error) {
	target, err := repo.LatestReversibleChange(ctx, s.DB, req.TenantID, req.RestaurantID, req.ChangeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoReversibleChange
	}
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateSnapshot(ctx, tx, req.TenantID, req.RestaurantID, target.PreviousState); err != nil {
			return err
		}
		if err := repo.MarkChangeRolledBack(ctx, tx, target.ChangeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Lost the race to another undo of the same change.
				return ErrNoReversibleChange
			}
			return err
		}
		// The originating intent moves to its final lifecycle status. Changes
		// written outside the command flow carry no intent id.
		if target.IntentID != "" {
			if err := repo.UpdateIntentStatus(ctx, tx, target.IntentID, domain.StatusRolledBack); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return repo.AppendAudit(ctx, tx, &domain.AuditLog{
			TenantID:     req.TenantID,
			RestaurantID: req.RestaurantID,
			ActorID:      req.ActorID,
			Source:       req.Source,
			EventType:    "config.rollback",
			Detail: map[string]any{
				"change_id":   target.ChangeID,
				"action_type": string(target.ActionType),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	target.RolledBack = true
	target.RolledBackAt = &now
	s.Store.Invalidate(req.TenantID, req.RestaurantID)
	return target, nil
}
