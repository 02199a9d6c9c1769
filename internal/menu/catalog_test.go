package menu

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erichecan/AIrest/internal/domain"
	"github.com/erichecan/AIrest/internal/repo"
)

func newCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.MenuItem{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedMenu(t *testing.T, db *gorm.DB, restaurantID int, names ...string) {
	t.Helper()
	items := make([]domain.MenuItem, 0, len(names))
	for i, n := range names {
		items = append(items, domain.MenuItem{
			ID:           n,
			RestaurantID: restaurantID,
			NameEN:       n,
			Price:        decimal.NewFromInt(int64(10 + i)),
			Available:    true,
		})
	}
	if err := repo.UpsertMenuItems(context.Background(), db, items); err != nil {
		t.Fatalf("seed menu: %v", err)
	}
}

func TestCatalog_IndexFor_LoadsAndCaches(t *testing.T) {
	db := newCatalogDB(t)
	seedMenu(t, db, 1, "fried rice", "spring rolls")

	cat := NewCatalog(db)
	ix, err := cat.IndexFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("IndexFor: %v", err)
	}
	if ix.Len() != 2 {
		t.Fatalf("index len = %d", ix.Len())
	}

	// a later insert is invisible until invalidation
	seedMenu(t, db, 1, "dumplings")
	ix2, err := cat.IndexFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("IndexFor cached: %v", err)
	}
	if ix2.Len() != 2 {
		t.Fatalf("cached index should be stale, len = %d", ix2.Len())
	}

	cat.Invalidate(1)
	ix3, err := cat.IndexFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("IndexFor reload: %v", err)
	}
	if ix3.Len() != 3 {
		t.Fatalf("reloaded index len = %d", ix3.Len())
	}
}

func TestCatalog_IndexFor_ScopedPerRestaurant(t *testing.T) {
	db := newCatalogDB(t)
	seedMenu(t, db, 1, "fried rice")
	seedMenu(t, db, 2, "pizza", "pasta")

	cat := NewCatalog(db)
	ix1, err := cat.IndexFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("IndexFor(1): %v", err)
	}
	ix2, err := cat.IndexFor(context.Background(), 2)
	if err != nil {
		t.Fatalf("IndexFor(2): %v", err)
	}
	if ix1.Len() != 1 || ix2.Len() != 2 {
		t.Fatalf("indices crossed tenants: %d %d", ix1.Len(), ix2.Len())
	}
}

func TestCatalog_Warm_EmptyMenu(t *testing.T) {
	db := newCatalogDB(t)
	cat := NewCatalog(db)

	n, err := cat.Warm(context.Background(), 99)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if n != 0 {
		t.Fatalf("empty menu warmed %d items", n)
	}

	// empty index is still usable
	ix, _ := cat.IndexFor(context.Background(), 99)
	if item, _ := ix.FindBestMatch("anything"); item != nil {
		t.Fatalf("empty index matched %+v", item)
	}
}
