package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"forgewealth/storefront/internal/cache"
	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/pkg/models"
)

// CachedRegistry is a read-through cache in front of another Registry.
// Tenants never change after creation, so cached entries are only bounded
// by the TTL. Misses are not cached so a new tenant is visible at once.
type CachedRegistry struct {
	next   Registry
	cache  cache.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *logging.Logger
}

// NewCachedRegistry wraps next with c.
func NewCachedRegistry(next Registry, c cache.Client, ttl time.Duration, logger *logging.Logger) *CachedRegistry {
	return &CachedRegistry{next: next, cache: c, ttl: ttl, logger: logger}
}

// lookupTimeout bounds a shared backend lookup, which outlives the caller
// that started it.
const lookupTimeout = 10 * time.Second

func cacheKey(tenantID string) string {
	return "tenant:" + tenantID
}

// GetTenant serves from the cache and falls back to the wrapped registry.
// Concurrent misses for the same tenant share one backend lookup.
func (r *CachedRegistry) GetTenant(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	b, err := r.cache.Get(ctx, cacheKey(tenantID))
	switch {
	case err == nil:
		var t models.TenantConfig
		if jerr := json.Unmarshal(b, &t); jerr == nil {
			return &t, nil
		}
		r.logger.Warn("discarding undecodable cache entry", "tenant_id", tenantID)
	case !errors.Is(err, cache.ErrNotFound):
		r.logger.Warn("tenant cache read failed", "tenant_id", tenantID, "error", err)
	}

	// The shared lookup must not die with whichever caller started it; each
	// caller stops waiting on its own context instead.
	ch := r.group.DoChan(tenantID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		t, err := r.next.GetTenant(lookupCtx, tenantID)
		if err != nil {
			return nil, err
		}
		r.store(lookupCtx, t)
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		t := *res.Val.(*models.TenantConfig)
		return &t, nil
	}
}

// CreateTenant delegates to the wrapped registry and primes the cache.
func (r *CachedRegistry) CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision ProvisionFunc) error {
	if err := r.next.CreateTenant(ctx, tenant, provision); err != nil {
		return err
	}
	r.store(ctx, tenant)
	return nil
}

// Ping checks both the cache and the wrapped registry.
func (r *CachedRegistry) Ping(ctx context.Context) error {
	if err := r.cache.Ping(ctx); err != nil {
		return err
	}
	return r.next.Ping(ctx)
}

func (r *CachedRegistry) store(ctx context.Context, t *models.TenantConfig) {
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(t.TenantID), b, r.ttl); err != nil {
		r.logger.Warn("tenant cache write failed", "tenant_id", t.TenantID, "error", err)
	}
}
