package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erichecan/AIrest/internal/domain"
)

func TestOrderQuery_Count(t *testing.T) {
	h := newHarness(t)
	seedOrders(t, h.db)

	out, err := h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Filters:     domain.OrderQueryFilters{Status: []string{"confirmed"}},
		Aggregation: "count",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d", out.Count)
	}
	// count responses stay item-free to keep voice output short
	if len(out.Items) != 0 {
		t.Fatalf("count should carry no items: %+v", out.Items)
	}
}

func TestOrderQuery_Sum(t *testing.T) {
	h := newHarness(t)
	seedOrders(t, h.db)

	out, err := h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Filters:     domain.OrderQueryFilters{Status: []string{"confirmed"}},
		Aggregation: "sum",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.SumTotal == nil || !out.SumTotal.Equal(decimal.NewFromFloat(55.50)) {
		t.Fatalf("sum = %v", out.SumTotal)
	}
}

func TestOrderQuery_ListDefaults(t *testing.T) {
	h := newHarness(t)
	seedOrders(t, h.db)

	// empty status filter widens to all operational statuses; unknown
	// aggregation degrades to list
	out, err := h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Aggregation: "everything",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Aggregation != "list" {
		t.Fatalf("aggregation = %q", out.Aggregation)
	}
	if out.Count != 3 {
		t.Fatalf("count = %d", out.Count)
	}
	if len(out.Items) != 3 {
		t.Fatalf("items = %d", len(out.Items))
	}
	// newest first
	if out.Items[0].ID != "ORD-3" {
		t.Fatalf("order of items: %+v", out.Items)
	}
	if _, err := time.Parse(time.RFC3339, out.Items[0].CreatedAt); err != nil {
		t.Fatalf("created_at format: %q", out.Items[0].CreatedAt)
	}
}

func TestOrderQuery_TimeWindow(t *testing.T) {
	h := newHarness(t)
	seedOrders(t, h.db)

	from := time.Now().UTC().Add(-90 * time.Minute).Format(time.RFC3339)
	out, err := h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Filters: domain.OrderQueryFilters{
			Status: []string{"confirmed", "pending"},
			From:   &from,
		},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// ORD-1 is two hours old and falls outside the window
	if out.Count != 2 {
		t.Fatalf("count = %d (items %+v)", out.Count, out.Items)
	}

	// malformed bounds are ignored, not fatal
	bad := "not-a-time"
	out, err = h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Filters: domain.OrderQueryFilters{Status: []string{"confirmed"}, From: &bad},
	})
	if err != nil {
		t.Fatalf("query with bad bound: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("bad bound should be ignored, count = %d", out.Count)
	}
}

func TestOrderQuery_LimitApplied(t *testing.T) {
	h := newHarness(t)
	seedOrders(t, h.db)

	out, err := h.orders.Query(context.Background(), testRestaurant, domain.OrderQueryPayload{
		Filters: domain.OrderQueryFilters{Status: []string{"confirmed", "pending"}},
		Limit:   1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("limit not applied: %d items", len(out.Items))
	}
}
