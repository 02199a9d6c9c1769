package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWebhookEvent_StoreAndReplay(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := GetWebhookEvent(ctx, db, "evt_1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing event: err = %v", err)
	}
	if _, err := GetWebhookEvent(ctx, db, "  ", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank id: err = %v", err)
	}

	rec, err := CreateWebhookEvent(ctx, db, "evt_1", "call_1", "add_item", `{"status":"success"}`, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetWebhookEvent(ctx, db, "evt_1", time.Now().UTC())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Response != `{"status":"success"}` || got.ToolName != "add_item" {
		t.Fatalf("record = %+v", got)
	}

	// a second worker storing the same event loses the race
	if _, err := CreateWebhookEvent(ctx, db, "evt_1", "call_1", "add_item", "{}", time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate: err = %v", err)
	}

	// past the TTL the record no longer answers
	if _, err := GetWebhookEvent(ctx, db, "evt_1", rec.ExpiresAt.Add(time.Second)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired event: err = %v", err)
	}
}
