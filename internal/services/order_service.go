// Package services – OrderQueryService
//
// Read-only aggregations over submitted orders. Order queries never touch
// config state; they run outside the snapshot transaction and are audited
// separately.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/repo"
)

// OrderSummary is the wire shape of one matched order.
type OrderSummary struct {
	ID            string          `json:"id"`
	CustomerPhone string          `json:"customer_phone"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

// OrderQueryResult is the aggregation output attached to a command response.
type OrderQueryResult struct {
	Aggregation string           `json:"aggregation"`
	Count       int              `json:"count"`
	SumTotal    *decimal.Decimal `json:"sum_total,omitempty"`
	Items       []OrderSummary   `json:"items"`
}

// OrderQueryService executes order.query intents.
type OrderQueryService struct {
	// DB is the GORM handle used for order reads.
	DB *gorm.DB
}

// NewOrderQueryService constructs an OrderQueryService backed by db.
func NewOrderQueryService(db *gorm.DB) *OrderQueryService {
	return &OrderQueryService{DB: db}
}

// Query runs the aggregation described by the payload against the
// restaurant's orders. Unknown aggregations degrade to "list".
func (s *OrderQueryService) Query(ctx context.Context, restaurantID int, p domain.OrderQueryPayload) (*OrderQueryResult, error) {
	statuses := p.Filters.Status
	if len(statuses) == 0 {
		statuses = []string{"confirmed", "pending", "failed"}
	}
	filter := repo.OrderFilter{
		RestaurantID: restaurantID,
		Statuses:     statuses,
		Limit:        p.Limit,
	}
	if t, ok := parseQueryTime(p.Filters.From); ok {
		filter.From = &t
	}
	if t, ok := parseQueryTime(p.Filters.To); ok {
		filter.To = &t
	}

	orders, err := repo.ListOrders(ctx, s.DB, filter)
	if err != nil {
		return nil, err
	}

	res := &OrderQueryResult{
		Aggregation: p.Aggregation,
		Count:       len(orders),
		Items:       []OrderSummary{},
	}
	switch p.Aggregation {
	case "count":
		// Count only; items stay empty to keep voice responses short.
	case "sum":
		sum := decimal.Zero
		for _, o := range orders {
			sum = sum.Add(o.Total)
		}
		res.SumTotal = &sum
	default:
		res.Aggregation = "list"
		for _, o := range orders {
			res.Items = append(res.Items, OrderSummary{
				ID:            o.ID,
				CustomerPhone: o.CustomerPhone,
				Total:         o.Total,
				Status:        o.Status,
				CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return res, nil
}

// parseQueryTime accepts RFC 3339 or bare dates ("2026-03-02") from parsed
// filters. Anything else is ignored rather than failing the query.
func parseQueryTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
