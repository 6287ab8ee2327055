package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

func TestFromInfDec(t *testing.T) {
	assert.Equal(t, "9.99", fromInfDec(inf.NewDec(999, 2)).String())
	assert.Equal(t, "1200", fromInfDec(inf.NewDec(12, -2)).String())
	assert.True(t, fromInfDec(nil).IsZero())
}

func newCached(t *testing.T, next Lookup) (*CachedLookup, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedLookup(next, client), mr
}

func TestCachedLookup_CachesHits(t *testing.T) {
	calls := 0
	source := LookupFunc(func(ctx context.Context, id string) (*Product, error) {
		calls++
		return &Product{ID: id, Name: "Bonnet", SKU: "BN-1", Price: decimal.RequireFromString("9.99")}, nil
	})
	lookup, mr := newCached(t, source)
	ctx := context.Background()

	first, err := lookup.GetProduct(ctx, "42")
	require.NoError(t, err)
	second, err := lookup.GetProduct(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, second.Price.Equal(first.Price))
	assert.Equal(t, "Bonnet", second.Name)
	assert.True(t, mr.Exists("product:42"))

	// un changement de prix est visible au plus tard après le TTL
	mr.FastForward(ProductCacheTTL + time.Second)
	_, err = lookup.GetProduct(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedLookup_DoesNotCacheMisses(t *testing.T) {
	calls := 0
	source := LookupFunc(func(ctx context.Context, id string) (*Product, error) {
		calls++
		return nil, ErrNotFound
	})
	lookup, mr := newCached(t, source)

	for i := 0; i < 2; i++ {
		_, err := lookup.GetProduct(context.Background(), "404")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 2, calls)
	assert.False(t, mr.Exists("product:404"))
}
