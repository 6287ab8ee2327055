package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const ProductCacheTTL = 10 * time.Minute

// CachedLookup met en cache Redis les produits trouvés.
// Les produits absents ne sont jamais mis en cache.
type CachedLookup struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
}

func NewCachedLookup(next Lookup, client *redis.Client) *CachedLookup {
	return &CachedLookup{next: next, client: client, ttl: ProductCacheTTL}
}

func cacheKey(id string) string {
	return "product:" + id
}

func (c *CachedLookup) GetProduct(ctx context.Context, id string) (*Product, error) {
	// 1. Essayer le cache Redis
	if data, err := c.client.Get(ctx, cacheKey(id)).Bytes(); err == nil {
		var p Product
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// 2. Source
	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, cacheKey(id), data, c.ttl).Err(); err != nil {
			log.Printf("⚠️ Cache produit %s non écrit: %v", id, err)
		}
	}
	return p, nil
}
