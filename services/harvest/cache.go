package harvest

import (
	"bytes"
	"context"
	"encoding/gob"
	"log/slog"
	"time"

	acumbaapi "mailmetrics-backend/lib/platforms/acumba"

	"github.com/dgraph-io/badger/v4"
)

const listCatalogKey = "acumba:lists"

type cachedCatalog struct {
	Lists     []acumbaapi.SubscriberList
	ExpiresAt int64
}

// ListCatalogCache keeps the account's subscriber list catalog between
// batch runs. The catalog changes rarely and is fetched once per record
// otherwise, which burns rate-limit budget for nothing.
type ListCatalogCache struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

func NewListCatalogCache(db *badger.DB, ttl time.Duration) *ListCatalogCache {
	return &ListCatalogCache{db: db, ttl: ttl, now: time.Now}
}

func (c *ListCatalogCache) Get(ctx context.Context) ([]acumbaapi.SubscriberList, bool) {
	tx := c.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get([]byte(listCatalogKey))
	if err == badger.ErrKeyNotFound {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "list catalog cache read failed", "err", err)
		return nil, false
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		slog.WarnContext(ctx, "list catalog cache copy failed", "err", err)
		return nil, false
	}

	var cached cachedCatalog
	if err := gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached); err != nil {
		slog.WarnContext(ctx, "list catalog cache decode failed", "err", err)
		return nil, false
	}
	if c.now().Unix() >= cached.ExpiresAt {
		del := c.db.NewTransaction(true)
		defer del.Commit()
		if err := del.Delete([]byte(listCatalogKey)); err != nil {
			slog.WarnContext(ctx, "could not delete expired list catalog", "err", err)
		}
		return nil, false
	}
	return cached.Lists, true
}

func (c *ListCatalogCache) Put(ctx context.Context, lists []acumbaapi.SubscriberList) {
	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(cachedCatalog{
		Lists:     lists,
		ExpiresAt: c.now().Add(c.ttl).Unix(),
	})
	if err != nil {
		slog.WarnContext(ctx, "list catalog cache encode failed", "err", err)
		return
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()
	if err := tx.Set([]byte(listCatalogKey), serialized.Bytes()); err != nil {
		slog.WarnContext(ctx, "list catalog cache write failed", "err", err)
	}
}
