package repository

import (
	"context"
	"errors"

	"forgewealth/storefront/pkg/models"
)

var (
	// ErrNotFound is returned when no tenant has the requested identifier.
	ErrNotFound = errors.New("tenant not found")
	// ErrConflict is returned when a tenant with the same identifier exists.
	ErrConflict = errors.New("tenant already exists")
)

// ProvisionFunc creates the identity-provider organization backing a new
// tenant and returns its identifier. It runs after the tenant identifier
// has been reserved and before the record becomes visible; when it fails
// the record is discarded.
type ProvisionFunc func(ctx context.Context, tenantID string) (orgID string, err error)

// Registry is the keyed store of tenant configurations. Tenants are
// create-only: there is no update or delete.
type Registry interface {
	// GetTenant returns the tenant or ErrNotFound.
	GetTenant(ctx context.Context, tenantID string) (*models.TenantConfig, error)
	// CreateTenant stores tenant, filling OrgID and CreatedAt. At most one
	// of any number of concurrent calls for the same TenantID succeeds; the
	// others get ErrConflict. provision may be nil.
	CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision ProvisionFunc) error
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
