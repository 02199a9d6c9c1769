// Package session keeps per-call state for the voice ordering flow: the
// cart under construction, fulfillment details, and the caller's language.
// State lives in Redis when a client is configured (so multiple instances
// see the same call) and falls back to an in-process map with the same TTL
// semantics otherwise.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultTTL matches the lifetime of a phone call with generous slack.
const DefaultTTL = 6 * time.Hour

// CartLine is one item in the caller's cart.
type CartLine struct {
	ItemID string          `json:"item_id"`
	NameEN string          `json:"name_en"`
	NameZH string          `json:"name_zh"`
	Price  decimal.Decimal `json:"price"`
	Qty    int             `json:"qty"`
	Notes  string          `json:"notes,omitempty"`
}

// Session is the per-call conversational state.
type Session struct {
	TenantID     string            `json:"tenant_id"`
	RestaurantID int               `json:"restaurant_id"`
	Cart         []CartLine        `json:"cart"`
	Fulfillment  map[string]string `json:"fulfillment"`
	Lang         string            `json:"lang"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Totals returns subtotal, tax, and total for the cart at the given tax
// rate, each rounded to cents.
func (s *Session) Totals(taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, line := range s.Cart {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	tax = subtotal.Mul(taxRate).Round(2)
	subtotal = subtotal.Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// Store reads and writes call sessions. The zero value is not usable;
// construct with NewStore.
type Store struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	session Session
	expires time.Time
}

// NewStore builds a Store. rdb may be nil, in which case sessions are kept
// in process memory only.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		rdb:   rdb,
		ttl:   ttl,
		local: map[string]localEntry{},
	}
}

// Key returns the storage key for one call.
func Key(tenantID string, restaurantID int, callID string) string {
	return fmt.Sprintf("session:%s:%d:%s", tenantID, restaurantID, callID)
}

// Get returns the session for a call, creating a fresh one when none exists
// or the previous one expired.
func (s *Store) Get(ctx context.Context, tenantID string, restaurantID int, callID string) (*Session, error) {
	key := Key(tenantID, restaurantID, callID)

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var sess Session
			if err := json.Unmarshal(raw, &sess); err != nil {
				return nil, fmt.Errorf("session decode: %w", err)
			}
			return &sess, nil
		case err != redis.Nil:
			return nil, fmt.Errorf("session get: %w", err)
		}
		return newSession(tenantID, restaurantID), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.local[key]; ok && time.Now().Before(entry.expires) {
		sess := entry.session
		return &sess, nil
	}
	return newSession(tenantID, restaurantID), nil
}

// Save persists the session under the store's TTL.
func (s *Store) Save(ctx context.Context, callID string, sess *Session) error {
	key := Key(sess.TenantID, sess.RestaurantID, callID)

	if s.rdb != nil {
		raw, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("session encode: %w", err)
		}
		if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			return fmt.Errorf("session set: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[key] = localEntry{session: *sess, expires: time.Now().Add(s.ttl)}
	return nil
}

// Delete removes the session, typically after an order is submitted.
func (s *Store) Delete(ctx context.Context, tenantID string, restaurantID int, callID string) error {
	key := Key(tenantID, restaurantID, callID)
	if s.rdb != nil {
		return s.rdb.Del(ctx, key).Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.local, key)
	return nil
}

func newSession(tenantID string, restaurantID int) *Session {
	return &Session{
		TenantID:     tenantID,
		RestaurantID: restaurantID,
		Cart:         []CartLine{},
		Fulfillment:  map[string]string{},
		Lang:         "en",
		CreatedAt:    time.Now().UTC(),
	}
}
