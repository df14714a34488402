package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forgewealth/storefront/pkg/models"
)

type memoryEntry struct {
	tenant  models.TenantConfig
	pending bool
}

// MemoryRegistry is an in-process Registry for development and tests.
// Provisioning happens outside the lock: the identifier is reserved as a
// pending entry first, so concurrent creates still see the conflict and
// readers never observe a half-created tenant.
type MemoryRegistry struct {
	mu      sync.RWMutex
	tenants map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tenants: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// GetTenant retrieves a tenant by its identifier.
func (r *MemoryRegistry) GetTenant(_ context.Context, tenantID string) (*models.TenantConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tenants[tenantID]
	if !ok || e.pending {
		return nil, ErrNotFound
	}
	t := e.tenant
	return &t, nil
}

// CreateTenant stores a new tenant.
func (r *MemoryRegistry) CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision ProvisionFunc) error {
	r.mu.Lock()
	if _, exists := r.tenants[tenant.TenantID]; exists {
		r.mu.Unlock()
		return ErrConflict
	}
	r.tenants[tenant.TenantID] = &memoryEntry{pending: true}
	r.mu.Unlock()

	var orgID string
	if provision != nil {
		var err error
		orgID, err = provision(ctx, tenant.TenantID)
		if err != nil {
			r.mu.Lock()
			delete(r.tenants, tenant.TenantID)
			r.mu.Unlock()
			return fmt.Errorf("provision organization: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tenant.OrgID = orgID
	tenant.CreatedAt = r.now().UTC()
	r.tenants[tenant.TenantID] = &memoryEntry{tenant: *tenant}
	return nil
}

// Ping always succeeds.
func (r *MemoryRegistry) Ping(context.Context) error {
	return nil
}
