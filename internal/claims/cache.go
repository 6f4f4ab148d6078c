package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/authz"
	"github.com/buildgrid/authcore/internal/telemetry"
)

const (
	// DefaultTTL keeps claims fresh enough that a lifecycle or role change
	// is visible within a couple of seconds.
	DefaultTTL = 2 * time.Second

	// MaxTTL is a hard cap. Session-lifetime claims caching is exactly the
	// staleness bug this package exists to avoid, so a misconfigured TTL is
	// clamped rather than honored.
	MaxTTL = 10 * time.Second

	defaultMaxEntries = 16384
)

// Cache memoizes a Source for a short TTL. It is safe for concurrent use;
// entries are tiny, so cost accounting is per entry rather than per byte.
type Cache struct {
	source Source
	cache  *ristretto.Cache[string, authz.Claims]
	ttl    time.Duration
}

// NewCache wraps source with a TTL'd in-process cache. A zero ttl selects
// DefaultTTL; anything beyond MaxTTL is clamped.
func NewCache(source Source, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, authz.Claims]{
		NumCounters: defaultMaxEntries * 10,
		MaxCost:     defaultMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create claims cache: %w", err)
	}

	return &Cache{
		source: source,
		cache:  cache,
		ttl:    ttl,
	}, nil
}

// Build returns cached claims when fresh, otherwise recomputes and caches.
func (c *Cache) Build(ctx context.Context, principalID uuid.UUID) (authz.Claims, error) {
	key := principalID.String()

	if cached, ok := c.cache.Get(key); ok {
		telemetry.GetMetrics().RecordClaimsCache(ctx, true)
		return cached, nil
	}
	telemetry.GetMetrics().RecordClaimsCache(ctx, false)

	claims, err := c.source.Build(ctx, principalID)
	if err != nil {
		return authz.Claims{}, err
	}

	c.cache.SetWithTTL(key, claims, 1, c.ttl)
	return claims, nil
}

// Invalidate drops the cached claims for a principal. Administrative
// mutations call this so their effect is visible before the TTL lapses.
func (c *Cache) Invalidate(principalID uuid.UUID) {
	c.cache.Del(principalID.String())
}

// Wait blocks until buffered cache writes have been applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.cache.Close()
}
