// Natural-language command HTTP handlers.
//
// This file exposes REST endpoints for the command engine:
//   - POST /nl/command   (execute a free-form command)
//   - POST /nl/confirm   (confirm a pending high-risk command)
//   - POST /nl/undo      (roll back a config change)
//   - GET  /nl/config    (read the current runtime config)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/http/middleware"
	"github.com/erichecan/AIrest/internal/services"
	"github.com/erichecan/AIrest/internal/sysutil"
	"github.com/erichecan/AIrest/internal/utils"
)

//
// Service contracts (context-aware)
//

// CommandService runs the full command lifecycle (parse, gate, apply).
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CommandService interface {
	// Execute parses and runs one command end to end.
	Execute(ctx context.Context, req services.CommandRequest) (*services.CommandResult, error)
	// Confirm re-runs a pending intent with the confirmation gate open.
	Confirm(ctx context.Context, intentID, actorID string) (*services.CommandResult, error)
}

// UndoService rolls back ledger changes.
type UndoService interface {
	// Undo rolls back the targeted (or most recent) change.
	Undo(ctx context.Context, req services.UndoRequest) (*domain.ConfigChange, error)
}

// ConfigReader resolves the current runtime config for a tenant tuple.
type ConfigReader interface {
	Current(ctx context.Context, tenantID string, restaurantID int) (services.VersionedConfig, error)
}

//
// Handler wiring
//

// Defaults fills in the tenant tuple for requests that omit it, mirroring
// single-restaurant deployments where callers never send ids.
type Defaults struct {
	TenantID     string
	RestaurantID int
}

// Handlers groups the HTTP endpoints of the command engine.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	cmdSvc   CommandService
	undoSvc  UndoService
	cfgStore ConfigReader
	defaults Defaults
}

// New constructs and returns a Handlers instance bound to the given services.
func New(cmdSvc CommandService, undoSvc UndoService, cfgStore ConfigReader, defaults Defaults) *Handlers {
	return &Handlers{cmdSvc: cmdSvc, undoSvc: undoSvc, cfgStore: cfgStore, defaults: defaults}
}

//
// DTOs
//

// NLCommandRequest is the JSON payload for executing a command.
type NLCommandRequest struct {
	Text         string `json:"text" binding:"required" example:"把蛋炒饭下架"`
	TenantID     string `json:"tenant_id"`
	RestaurantID int    `json:"restaurant_id"`
	ActorID      string `json:"actor_id"`
	Source       string `json:"source"`
	Language     string `json:"language"`
	Confirm      bool   `json:"confirm"`
	DryRun       bool   `json:"dry_run"`
}

// NLConfirmRequest is the JSON payload for confirming a pending intent.
type NLConfirmRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
	ActorID  string `json:"actor_id"`
}

// NLUndoRequest is the JSON payload for rolling back a change.
type NLUndoRequest struct {
	TenantID     string `json:"tenant_id"`
	RestaurantID int    `json:"restaurant_id"`
	ActorID      string `json:"actor_id"`
	Source       string `json:"source"`
	ChangeID     string `json:"change_id"`
}

// UndoResponse reports the outcome of a rollback.
type UndoResponse struct {
	Status   string `json:"status"`
	ChangeID string `json:"change_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ConfigResponse wraps the current runtime config for a tenant tuple.
type ConfigResponse struct {
	TenantID     string               `json:"tenant_id"`
	RestaurantID int                  `json:"restaurant_id"`
	SnapshotID   int64                `json:"snapshot_id"`
	Config       domain.RuntimeConfig `json:"config"`
}

//
// Helpers
//

// applyDefaults fills in the tenant tuple and actor fallbacks.
func (h *Handlers) applyDefaults(tenantID *string, restaurantID *int, actorID, source *string) {
	*tenantID = sysutil.FirstNonEmpty(*tenantID, h.defaults.TenantID)
	if *restaurantID <= 0 {
		*restaurantID = h.defaults.RestaurantID
	}
	if actorID != nil {
		*actorID = sysutil.FirstNonEmpty(*actorID, "owner")
	}
	if source != nil {
		*source = sysutil.FirstNonEmpty(*source, "chat")
	}
}

//
// Handlers
//

// ExecuteCommand godoc
// @ID          executeCommand
// @Summary     Execute a natural-language command
// @Description Parses the command, then applies it, asks for confirmation, or requests clarification.
// @Tags        Commands
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Dedupe key for safe retries"
// @Param       body  body  handlers.NLCommandRequest  true  "Command payload"
// @Success     200  {object}  services.CommandResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /nl/command [post]
func (h *Handlers) ExecuteCommand(c *gin.Context) {
	var req NLCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	h.applyDefaults(&req.TenantID, &req.RestaurantID, &req.ActorID, &req.Source)

	idemKey, _ := middleware.GetIdempotencyKey(c)
	res, err := h.cmdSvc.Execute(c.Request.Context(), services.CommandRequest{
		Text:           req.Text,
		TenantID:       req.TenantID,
		RestaurantID:   req.RestaurantID,
		ActorID:        req.ActorID,
		Source:         req.Source,
		LanguageHint:   req.Language,
		Confirm:        req.Confirm,
		DryRun:         req.DryRun,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmptyCommand) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCommandFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// ConfirmCommand godoc
// @ID          confirmCommand
// @Summary     Confirm a pending command
// @Description Re-runs an intent that is waiting for operator confirmation.
// @Tags        Commands
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.NLConfirmRequest  true  "Confirm payload"
// @Success     200  {object}  services.CommandResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Intent not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Intent not awaiting confirmation"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /nl/confirm [post]
func (h *Handlers) ConfirmCommand(c *gin.Context) {
	var req NLConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IntentID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "intent_id is required")
		return
	}
	if req.ActorID == "" {
		req.ActorID = "owner"
	}

	res, err := h.cmdSvc.Confirm(c.Request.Context(), req.IntentID, req.ActorID)
	switch {
	case errors.Is(err, services.ErrIntentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "intent not found")
		return
	case errors.Is(err, services.ErrIntentNotConfirmable):
		fail(c, http.StatusConflict, ErrCodeConflict, "intent is not awaiting confirmation")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCommandFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// UndoChange godoc
// @ID          undoChange
// @Summary     Roll back a config change
// @Description Rolls back the targeted change, or the most recent one when change_id is omitted.
// @Tags        Commands
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.NLUndoRequest  true  "Undo payload"
// @Success     200  {object}  handlers.UndoResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /nl/undo [post]
func (h *Handlers) UndoChange(c *gin.Context) {
	var req NLUndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.applyDefaults(&req.TenantID, &req.RestaurantID, &req.ActorID, &req.Source)

	change, err := h.undoSvc.Undo(c.Request.Context(), services.UndoRequest{
		TenantID:     req.TenantID,
		RestaurantID: req.RestaurantID,
		ActorID:      req.ActorID,
		Source:       req.Source,
		ChangeID:     req.ChangeID,
	})
	if errors.Is(err, services.ErrNoReversibleChange) {
		ok(c, http.StatusOK, UndoResponse{Status: "error", Message: "No reversible change found."})
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUndoFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, UndoResponse{
		Status:   "success",
		ChangeID: change.ChangeID,
		Message:  "Rolled back " + string(change.ActionType) + ".",
	})
}

// GetConfig godoc
// @ID          getConfig
// @Summary     Read the current runtime config
// @Description Returns the newest snapshot (or the built-in default) for a tenant tuple.
// @Tags        Config
// @Produce     json
// @Param       tenant_id      query  string  false "Tenant id"
// @Param       restaurant_id  query  int     false "Restaurant id"
// @Success     200  {object}  handlers.ConfigResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /nl/config [get]
func (h *Handlers) GetConfig(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	restaurantID := utils.AtoiDefault(c.Query("restaurant_id"), 0)
	h.applyDefaults(&tenantID, &restaurantID, nil, nil)

	cur, err := h.cfgStore.Current(c.Request.Context(), tenantID, restaurantID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeConfigFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ConfigResponse{
		TenantID:     tenantID,
		RestaurantID: restaurantID,
		SnapshotID:   cur.SnapshotID,
		Config:       cur.Config,
	})
}
