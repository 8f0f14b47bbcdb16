package entitlements

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// CachedStore caches the package catalog lookup in memory. Customer links
// and entitlements always go to the underlying store so that administrative
// changes are visible on the next check.
type CachedStore struct {
	Store
	packages *lru.LRU[features.Type, *SkillPackage]
}

// NewCachedStore wraps store with a catalog cache. A zero ttl or size
// disables caching and returns store unchanged.
func NewCachedStore(store Store, size int, ttl time.Duration) Store {
	if size <= 0 || ttl <= 0 {
		return store
	}
	return &CachedStore{
		Store:    store,
		packages: lru.NewLRU[features.Type, *SkillPackage](size, nil, ttl),
	}
}

// GetActivePackageByFeatureType serves from the cache, including cached misses
func (c *CachedStore) GetActivePackageByFeatureType(ctx context.Context, ft features.Type) (*SkillPackage, error) {
	if pkg, ok := c.packages.Get(ft); ok {
		return pkg, nil
	}

	pkg, err := c.Store.GetActivePackageByFeatureType(ctx, ft)
	if err != nil {
		return nil, err
	}

	c.packages.Add(ft, pkg)
	return pkg, nil
}

// UpsertPackage writes through and invalidates the whole catalog cache,
// since the upsert may move a package between feature types
func (c *CachedStore) UpsertPackage(ctx context.Context, pkg *SkillPackage) (*SkillPackage, error) {
	saved, err := c.Store.UpsertPackage(ctx, pkg)
	if err != nil {
		return nil, err
	}
	c.packages.Purge()
	return saved, nil
}

// Len returns the number of cached catalog entries
func (c *CachedStore) Len() int {
	return c.packages.Len()
}
