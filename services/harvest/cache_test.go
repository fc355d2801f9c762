package harvest

import (
	"context"
	"testing"
	"time"

	acumbaapi "mailmetrics-backend/lib/platforms/acumba"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *ListCatalogCache {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewListCatalogCache(db, ttl)
}

func TestListCatalogCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, ok := cache.Get(ctx)
	require.False(t, ok)

	lists := []acumbaapi.SubscriberList{{Id: 3, Name: "Newsletter"}, {Id: 9, Name: "Trials"}}
	cache.Put(ctx, lists)

	cached, ok := cache.Get(ctx)
	require.True(t, ok)
	require.Equal(t, lists, cached)
}

func TestListCatalogCacheExpires(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	cache.Put(ctx, []acumbaapi.SubscriberList{{Id: 3, Name: "Newsletter"}})

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok := cache.Get(ctx)
	require.False(t, ok)
}

func TestCatalogFetchGoesThroughCache(t *testing.T) {
	api := &fakeAPI{}
	cache := newTestCache(t, time.Hour)
	service := NewService(ServiceOptions{API: api, ListCache: cache, Retry: testPolicy})
	ctx := context.Background()

	_, err := service.GetCompositeRecord(ctx, 12)
	require.NoError(t, err)
	_, err = service.GetCompositeRecord(ctx, 12)
	require.NoError(t, err)
	require.Equal(t, 1, api.listCalls)
}
