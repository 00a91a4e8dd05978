package redis

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCache stores rendered dashboard views keyed by login.
// The view type is opaque to the cache: callers hand in whatever
// JSON-serializable structure the query layer produces.
type DashboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDashboardCache creates a DashboardCache. A non-positive ttl falls
// back to TTLDashboard.
func NewDashboardCache(cache *Cache, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = TTLDashboard
	}
	return &DashboardCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get loads a cached dashboard view into dest.
// Returns ErrCacheMiss when nothing is cached for the login.
func (d *DashboardCache) Get(ctx context.Context, login string, dest interface{}) error {
	return d.cache.Get(ctx, DashboardKey(login), dest)
}

// Set stores a dashboard view for the login.
func (d *DashboardCache) Set(ctx context.Context, login string, view interface{}) error {
	return d.cache.Set(ctx, DashboardKey(login), view, d.ttl)
}

// Invalidate drops the cached view for a login. Called after every sync
// and every preference update so stale views never outlive fresh data.
func (d *DashboardCache) Invalidate(ctx context.Context, login string) error {
	return d.cache.Delete(ctx, DashboardKey(login))
}

// InvalidateAll drops every cached dashboard view.
func (d *DashboardCache) InvalidateAll(ctx context.Context) error {
	return d.cache.DeleteByPattern(ctx, PrefixDashboard+"*")
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC LOCK
// ══════════════════════════════════════════════════════════════════════════════

// SyncLock is a best-effort distributed lock preventing the scheduler and
// an on-login sync from refreshing the same student at once.
type SyncLock struct {
	cache *Cache
	ttl   time.Duration
}

// NewSyncLock creates a SyncLock. A non-positive ttl falls back to TTLSyncLock.
func NewSyncLock(cache *Cache, ttl time.Duration) *SyncLock {
	if ttl <= 0 {
		ttl = TTLSyncLock
	}
	return &SyncLock{
		cache: cache,
		ttl:   ttl,
	}
}

// Acquire tries to take the sync lock for a login.
// Returns false when another sync already holds it.
func (l *SyncLock) Acquire(ctx context.Context, login string) (bool, error) {
	return l.cache.SetNX(ctx, SyncLockKey(login), "1", l.ttl)
}

// Release frees the sync lock for a login.
func (l *SyncLock) Release(ctx context.Context, login string) error {
	return l.cache.Delete(ctx, SyncLockKey(login))
}
