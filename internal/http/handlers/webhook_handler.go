// Voice-platform webhook handler.
//
// This file receives tool-call events from the voice assistant platform:
//   - POST /webhook
//
// Every request is HMAC-verified against the shared secret, rate limited per
// call, and each tool invocation is deduplicated through the webhook_events
// table so platform retries replay the stored result instead of re-executing
// the tool.
package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/http/middleware"
	"github.com/erichecan/AIrest/internal/menu"
	"github.com/erichecan/AIrest/internal/repo"
	"github.com/erichecan/AIrest/internal/services"
	"github.com/erichecan/AIrest/internal/session"
	"github.com/erichecan/AIrest/internal/sysutil"
)

// Signature and routing headers sent by the voice platform.
const (
	headerSignature    = "x-vapi-signature"
	headerCallID       = "x-vapi-call-id"
	headerMessageID    = "x-vapi-message-id"
	headerTenantID     = "x-tenant-id"
	headerRestaurantID = "x-restaurant-id"
)

//
// Wire shapes
//

type vapiRequest struct {
	Message vapiMessage `json:"message"`
}

type vapiMessage struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Call      vapiCall       `json:"call"`
	ToolCalls []vapiToolCall `json:"toolCalls"`
}

type vapiCall struct {
	ID       string         `json:"id"`
	Customer vapiCustomer   `json:"customer"`
	Metadata map[string]any `json:"metadata"`
}

type vapiCustomer struct {
	Number string `json:"number"`
}

type vapiToolCall struct {
	ID       string       `json:"id"`
	Function vapiFunction `json:"function"`
}

type vapiFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

//
// Per-call rate limiting
//

// callLimiter enforces a fixed one-minute window per call id. It counts in
// Redis when a client is configured so every instance shares the budget, and
// falls back to process memory otherwise.
type callLimiter struct {
	rdb   *redis.Client
	limit int

	mu      sync.Mutex
	windows map[string]rateWindow
}

type rateWindow struct {
	count int
	start time.Time
}

func newCallLimiter(rdb *redis.Client, limit int) *callLimiter {
	return &callLimiter{rdb: rdb, limit: limit, windows: map[string]rateWindow{}}
}

// allow reports whether the call may send another event this minute.
func (l *callLimiter) allow(c *gin.Context, callID string) bool {
	key := "rate:" + callID

	if l.rdb != nil {
		n, err := l.rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Fail open: a broken limiter must not drop live calls.
			return true
		}
		if n == 1 {
			l.rdb.Expire(c.Request.Context(), key, time.Minute)
		}
		return n <= int64(l.limit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	// Sweep windows from calls that ended, so the map does not grow with
	// every distinct call id for the process lifetime.
	for k, w := range l.windows {
		if now.Sub(w.start) > time.Minute {
			delete(l.windows, k)
		}
	}
	w, ok := l.windows[key]
	if !ok {
		w = rateWindow{start: now}
	}
	w.count++
	l.windows[key] = w
	return w.count <= l.limit
}

//
// Handler wiring
//

// WebhookHandler serves the voice-platform webhook.
type WebhookHandler struct {
	DB       *gorm.DB
	Cmd      CommandService
	Undo     UndoService
	Orders   *services.OrderQueryService
	Sessions *session.Store
	Catalog  *menu.Catalog
	Notifier services.Notifier

	Secret         string
	Defaults       Defaults
	EventTTL       time.Duration
	TaxRate        decimal.Decimal
	TransferNumber string

	limiter *callLimiter
}

// NewWebhookHandler builds a WebhookHandler. rdb may be nil; the rate
// limiter then keeps its windows in process memory.
func NewWebhookHandler(db *gorm.DB, cmd CommandService, undo UndoService, orders *services.OrderQueryService,
	sessions *session.Store, catalog *menu.Catalog, notifier services.Notifier, rdb *redis.Client,
	secret string, defaults Defaults, eventsPerMinute int, eventTTL time.Duration,
	taxRate decimal.Decimal, transferNumber string) *WebhookHandler {
	return &WebhookHandler{
		DB:             db,
		Cmd:            cmd,
		Undo:           undo,
		Orders:         orders,
		Sessions:       sessions,
		Catalog:        catalog,
		Notifier:       notifier,
		Secret:         secret,
		Defaults:       defaults,
		EventTTL:       eventTTL,
		TaxRate:        taxRate,
		TransferNumber: transferNumber,
		limiter:        newCallLimiter(rdb, eventsPerMinute),
	}
}

// Handle processes one webhook delivery.
func (h *WebhookHandler) Handle(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	if !h.verifySignature(raw, c.GetHeader(headerSignature)) {
		fail(c, http.StatusUnauthorized, ErrCodeBadSignature, "invalid webhook signature")
		return
	}

	var req vapiRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	callID := strings.TrimSpace(c.GetHeader(headerCallID))
	if callID == "" {
		callID = req.Message.Call.ID
	}
	if callID == "" {
		callID = "unknown_call"
	}
	tenantID, restaurantID := h.resolveContext(c, req.Message)

	if !h.limiter.allow(c, callID) {
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded")
		return
	}

	if req.Message.Type != "tool-calls" {
		ok(c, http.StatusOK, gin.H{"status": "ok"})
		return
	}

	sess, err := h.Sessions.Get(c.Request.Context(), tenantID, restaurantID, callID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	idx, err := h.Catalog.IndexFor(c.Request.Context(), restaurantID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	messageID := strings.TrimSpace(c.GetHeader(headerMessageID))
	if messageID == "" {
		messageID = req.Message.ID
	}
	if messageID == "" {
		messageID = "unknown_message"
	}
	customerPhone := req.Message.Call.Customer.Number
	if customerPhone == "" {
		customerPhone = "Unknown"
	}

	results := make([]toolResult, 0, len(req.Message.ToolCalls))
	for _, tool := range req.Message.ToolCalls {
		eventID := tenantID + ":" + strconv.Itoa(restaurantID) + ":" + messageID + ":" + tool.ID

		lg := middleware.LoggerFrom(c)
		lg.Info().
			Str("call_id", callID).
			Str("tool", tool.Function.Name).
			Str("event_id", eventID).
			Msg("executing tool call")

		if prior, err := repo.GetWebhookEvent(c.Request.Context(), h.DB, eventID, time.Now().UTC()); err == nil && prior != nil {
			results = append(results, toolResult{ToolCallID: tool.ID, Result: prior.Response})
			continue
		}

		out := h.runTool(c, toolEnv{
			callID:        callID,
			tenantID:      tenantID,
			restaurantID:  restaurantID,
			eventID:       eventID,
			customerPhone: customerPhone,
			session:       sess,
			index:         idx,
		}, tool)

		if err := h.Sessions.Save(c.Request.Context(), callID, sess); err != nil {
			lg.Error().Err(err).Str("call_id", callID).Msg("session save failed")
		}
		if _, err := repo.CreateWebhookEvent(c.Request.Context(), h.DB, eventID, callID, tool.Function.Name, out, h.EventTTL); err != nil {
			lg.Error().Err(err).Str("event_id", eventID).Msg("webhook event store failed")
		}
		results = append(results, toolResult{ToolCallID: tool.ID, Result: out})
	}

	ok(c, http.StatusOK, gin.H{"results": results})
}

// verifySignature checks the hex HMAC-SHA256 of the raw body. An empty
// configured secret disables verification (local development).
func (h *WebhookHandler) verifySignature(raw []byte, header string) bool {
	if h.Secret == "" {
		return true
	}
	received := strings.TrimSpace(header)
	if received == "" {
		return false
	}
	received = strings.TrimPrefix(received, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(raw)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(received))
}

// resolveContext picks the tenant tuple from headers, then call metadata,
// then the configured defaults.
func (h *WebhookHandler) resolveContext(c *gin.Context, msg vapiMessage) (string, int) {
	tenantID := strings.TrimSpace(c.GetHeader(headerTenantID))
	if tenantID == "" {
		tenantID = h.Defaults.TenantID
	}

	if hdr := strings.TrimSpace(c.GetHeader(headerRestaurantID)); hdr != "" {
		if id, err := strconv.Atoi(hdr); err == nil && id > 0 {
			return tenantID, id
		}
	}
	switch rid := msg.Call.Metadata["restaurant_id"].(type) {
	case float64:
		if rid > 0 {
			return tenantID, int(rid)
		}
	case string:
		if id, err := strconv.Atoi(rid); err == nil && id > 0 {
			return tenantID, id
		}
	}
	return tenantID, h.Defaults.RestaurantID
}

//
// Tool dispatch
//

// toolEnv carries the resolved per-request state a tool needs.
type toolEnv struct {
	callID        string
	tenantID      string
	restaurantID  int
	eventID       string
	customerPhone string
	session       *session.Session
	index         *menu.Index
}

// runTool executes one tool call and renders its result string. Failures
// degrade to an error string so the assistant can speak them.
func (h *WebhookHandler) runTool(c *gin.Context, env toolEnv, tool vapiToolCall) string {
	args := tool.Function.Arguments
	switch tool.Function.Name {
	case "search_menu":
		return h.searchMenu(env, args)
	case "add_item":
		return h.addItem(env, args)
	case "get_order_summary":
		return h.orderSummary(env, args)
	case "submit_order":
		return h.submitOrder(c, env)
	case "transfer_to_human":
		if argString(args, "lang", "en") == "zh" {
			return "正在为您转接 " + h.TransferNumber + "。"
		}
		return "Transferring you to " + h.TransferNumber + "."
	case "execute_nl_command":
		return h.executeNL(c, env, args)
	case "undo_last_config_change":
		return h.undoLast(c, env, args)
	case "query_orders":
		return h.queryOrders(c, env, args)
	default:
		return "Tool " + tool.Function.Name + " not implemented."
	}
}

func (h *WebhookHandler) searchMenu(env toolEnv, args map[string]any) string {
	query := argString(args, "query", "")
	lang := argString(args, "lang", "en")
	env.session.Lang = lang

	matches := env.index.TopMatches(query, 3, 0.40)
	if len(matches) == 0 {
		return mustMarshal(gin.H{"status": "no_match", "message": "No items found."})
	}

	found := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		name := m.Item.NameEN
		if lang == "zh" && m.Item.NameZH != "" {
			name = m.Item.NameZH
		}
		found = append(found, gin.H{
			"id":    m.Item.ID,
			"name":  name,
			"price": m.Item.Price,
			"score": m.Score,
		})
	}
	return mustMarshal(gin.H{"status": "success", "matches": found})
}

func (h *WebhookHandler) addItem(env toolEnv, args map[string]any) string {
	itemID := argString(args, "item_id", "")
	qty := argInt(args, "qty", 1)
	notes := argString(args, "notes", "")

	item, found := env.index.ItemByID(itemID)
	if !found {
		return mustMarshal(gin.H{"status": "error", "message": "Item ID not found."})
	}

	env.session.Cart = append(env.session.Cart, session.CartLine{
		ItemID: item.ID,
		NameEN: item.NameEN,
		NameZH: item.NameZH,
		Price:  item.Price,
		Qty:    qty,
		Notes:  notes,
	})
	_, _, total := env.session.Totals(h.TaxRate)

	msg := "Added " + strconv.Itoa(qty) + "x " + item.NameEN + "."
	if env.session.Lang == "zh" {
		msg = "已添加 " + strconv.Itoa(qty) + "份 " + item.NameZH + "。"
	}
	return mustMarshal(gin.H{
		"status":        "success",
		"message":       msg,
		"cart_count":    len(env.session.Cart),
		"current_total": "$" + total.StringFixed(2),
	})
}

func (h *WebhookHandler) orderSummary(env toolEnv, args map[string]any) string {
	lang := argString(args, "lang", "en")
	if len(env.session.Cart) == 0 {
		if lang == "zh" {
			return "您的购物车是空的。"
		}
		return "Your cart is empty."
	}

	_, _, total := env.session.Totals(h.TaxRate)
	var lines []string
	if lang == "zh" {
		lines = append(lines, "您目前的订单包括：")
		for _, line := range env.session.Cart {
			note := ""
			if line.Notes != "" {
				note = " (" + line.Notes + ")"
			}
			lines = append(lines, strconv.Itoa(line.Qty)+"份 "+line.NameZH+note)
		}
		lines = append(lines, "总计: $"+total.StringFixed(2)+" (含税)")
	} else {
		lines = append(lines, "You have ordered:")
		for _, line := range env.session.Cart {
			note := ""
			if line.Notes != "" {
				note = " (" + line.Notes + ")"
			}
			lines = append(lines, strconv.Itoa(line.Qty)+"x "+line.NameEN+note)
		}
		lines = append(lines, "Total: $"+total.StringFixed(2)+" (with tax)")
	}
	return strings.Join(lines, "\n")
}

func (h *WebhookHandler) submitOrder(c *gin.Context, env toolEnv) string {
	if len(env.session.Cart) == 0 {
		return "Cart is empty."
	}

	orderID := "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	_, _, total := env.session.Totals(h.TaxRate)
	itemsJSON, err := json.Marshal(env.session.Cart)
	if err != nil {
		return "Error: " + err.Error()
	}

	sourceID := env.eventID
	inserted, err := repo.CreateOrder(c.Request.Context(), h.DB, &domain.Order{
		ID:            orderID,
		RestaurantID:  env.restaurantID,
		CustomerPhone: env.customerPhone,
		Items:         domain.JSONText(itemsJSON),
		Total:         total,
		Status:        "confirmed",
		SourceEventID: &sourceID,
	})
	if err != nil {
		return "Error: " + err.Error()
	}

	if inserted && h.Notifier != nil {
		var items []string
		for _, line := range env.session.Cart {
			items = append(items, strconv.Itoa(line.Qty)+"x "+line.NameEN)
		}
		body := "Total: $" + total.StringFixed(2) + "\nItems:\n" + strings.Join(items, "\n")
		if err := h.Notifier.NotifyOrder(c.Request.Context(), env.restaurantID, "[New Order] #"+orderID, body); err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Str("order_id", orderID).Msg("order notification failed")
		}
	}

	env.session.Cart = []session.CartLine{}
	status := "success"
	msgEN := "Order " + orderID + " confirmed. The kitchen has been notified."
	msgZH := "订单 " + orderID + " 已确认，厨房已收到通知。"
	if !inserted {
		status = "duplicate"
		msgEN = "Duplicate submit ignored."
		msgZH = "重复提交已忽略。"
	}
	return mustMarshal(gin.H{
		"status":     status,
		"order_id":   orderID,
		"message_en": msgEN,
		"message_zh": msgZH,
	})
}

func (h *WebhookHandler) executeNL(c *gin.Context, env toolEnv, args map[string]any) string {
	res, err := h.Cmd.Execute(c.Request.Context(), services.CommandRequest{
		Text:         argString(args, "text", ""),
		TenantID:     argString(args, "tenant_id", env.tenantID),
		RestaurantID: argInt(args, "restaurant_id", env.restaurantID),
		ActorID:      argString(args, "actor_id", "owner"),
		Source:       argString(args, "source", "voice"),
		LanguageHint: argString(args, "language", ""),
		Confirm:      argBool(args, "confirm"),
		DryRun:       argBool(args, "dry_run"),
	})
	if err != nil {
		return "Error: " + err.Error()
	}
	return mustMarshal(res)
}

func (h *WebhookHandler) undoLast(c *gin.Context, env toolEnv, args map[string]any) string {
	change, err := h.Undo.Undo(c.Request.Context(), services.UndoRequest{
		TenantID:     argString(args, "tenant_id", env.tenantID),
		RestaurantID: argInt(args, "restaurant_id", env.restaurantID),
		ActorID:      argString(args, "actor_id", "owner"),
		Source:       argString(args, "source", "voice"),
		ChangeID:     argString(args, "change_id", ""),
	})
	if errors.Is(err, services.ErrNoReversibleChange) {
		return mustMarshal(gin.H{"status": "error", "message": "No reversible change found."})
	}
	if err != nil {
		return "Error: " + err.Error()
	}
	return mustMarshal(gin.H{
		"status":    "success",
		"change_id": change.ChangeID,
		"message":   "Rolled back " + string(change.ActionType) + ".",
	})
}

func (h *WebhookHandler) queryOrders(c *gin.Context, env toolEnv, args map[string]any) string {
	payload := domain.OrderQueryPayload{
		Aggregation: argString(args, "aggregation", "list"),
		Limit:       argInt(args, "limit", 20),
	}
	if filters, ok := args["filters"].(map[string]any); ok {
		if raw, err := json.Marshal(filters); err == nil {
			_ = json.Unmarshal(raw, &payload.Filters)
		}
	}

	out, err := h.Orders.Query(c.Request.Context(), argInt(args, "restaurant_id", env.restaurantID), payload)
	if err != nil {
		return "Error: " + err.Error()
	}
	return mustMarshal(gin.H{"status": "success", "result": out})
}

//
// Argument helpers
//

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func argBool(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		// Tool models sometimes send booleans as strings ("true", "yes").
		return sysutil.IsTruthy(v)
	}
	return false
}

// mustMarshal renders a tool result document. Inputs are built in-process so
// marshaling cannot realistically fail; a failure degrades to an error string.
func mustMarshal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "Error: " + err.Error()
	}
	return string(raw)
}
