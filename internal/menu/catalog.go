package menu

import (
	"context"

	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/cache"
	"github.com/erichecan/AIrest/internal/repo"
)

// Catalog serves per-restaurant menu indices through a keyed cache. Entries
// are lazily loaded from the database and must be invalidated whenever the
// menu_items table changes for that restaurant.
type Catalog struct {
	db    *gorm.DB
	cache *cache.Keyed[int, *Index]
}

// NewCatalog constructs a Catalog bound to the given database handle.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db, cache: cache.New[int, *Index]()}
}

// IndexFor returns the fuzzy index for one restaurant, loading it on first
// use. An empty menu still yields a usable (empty) index.
func (c *Catalog) IndexFor(ctx context.Context, restaurantID int) (*Index, error) {
	return c.cache.GetOrLoad(restaurantID, func() (*Index, error) {
		items, err := repo.ListMenuItems(ctx, c.db, restaurantID)
		if err != nil {
			return nil, err
		}
		return NewIndex(items), nil
	})
}

// Invalidate drops the cached index for one restaurant so the next read
// rebuilds it from the database.
func (c *Catalog) Invalidate(restaurantID int) {
	c.cache.Invalidate(restaurantID)
}

// Warm eagerly builds the index for one restaurant at startup.
func (c *Catalog) Warm(ctx context.Context, restaurantID int) (int, error) {
	ix, err := c.IndexFor(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	return ix.Len(), nil
}
