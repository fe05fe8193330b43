package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-wallet/core"
)

const snapshotCacheKeyPrefix = "go-wallet::snapshot::v1"

// CachedSnapshotStore reads through a cache service and invalidates the slot
// entry on every write.
type CachedSnapshotStore struct {
	base  core.SnapshotStore
	cache repositorycache.CacheService
}

type cachedSnapshot struct {
	Snapshot core.PersistedSnapshot
	Found    bool
}

func NewCachedSnapshotStore(
	base core.SnapshotStore,
	cacheService repositorycache.CacheService,
) (*CachedSnapshotStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base snapshot store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: snapshot cache service is required")
	}
	return &CachedSnapshotStore{base: base, cache: cacheService}, nil
}

// SnapshotCacheKey returns go-wallet::snapshot::v1::<slot> with the slot
// URL-path escaped.
func SnapshotCacheKey(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return "", fmt.Errorf("sqlstore: snapshot slot is required")
	}
	return snapshotCacheKeyPrefix + "::" + url.PathEscape(slot), nil
}

func (s *CachedSnapshotStore) Load(ctx context.Context, slot string) (core.PersistedSnapshot, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.PersistedSnapshot{}, false, fmt.Errorf("sqlstore: cached snapshot store is not configured")
	}
	cacheKey, err := SnapshotCacheKey(slot)
	if err != nil {
		return core.PersistedSnapshot{}, false, err
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedSnapshot, error) {
		snapshot, found, fetchErr := s.base.Load(ctx, strings.TrimSpace(slot))
		if fetchErr != nil {
			return cachedSnapshot{}, fetchErr
		}
		return cachedSnapshot{Snapshot: snapshot, Found: found}, nil
	})
	if err != nil {
		return core.PersistedSnapshot{}, false, err
	}
	return entry.Snapshot, entry.Found, nil
}

func (s *CachedSnapshotStore) Save(ctx context.Context, slot string, snapshot core.PersistedSnapshot) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached snapshot store is not configured")
	}
	cacheKey, err := SnapshotCacheKey(slot)
	if err != nil {
		return err
	}
	if err := s.base.Save(ctx, strings.TrimSpace(slot), snapshot); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedSnapshotStore) Delete(ctx context.Context, slot string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached snapshot store is not configured")
	}
	cacheKey, err := SnapshotCacheKey(slot)
	if err != nil {
		return err
	}
	if err := s.base.Delete(ctx, strings.TrimSpace(slot)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
