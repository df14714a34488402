package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	runRegistryContract(t, func(*testing.T) Registry { return NewMemoryRegistry() })
}

func TestMemoryRegistry_PendingTenantIsInvisible(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	inProvisioning := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- reg.CreateTenant(ctx, sampleTenant("slow-co"), func(context.Context, string) (string, error) {
			close(inProvisioning)
			<-release
			return "org_slow", nil
		})
	}()

	<-inProvisioning
	_, err := reg.GetTenant(ctx, "slow-co")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.CreateTenant(ctx, sampleTenant("slow-co"), nil), ErrConflict)

	close(release)
	require.NoError(t, <-done)

	got, err := reg.GetTenant(ctx, "slow-co")
	require.NoError(t, err)
	assert.Equal(t, "org_slow", got.OrgID)
}

func TestMemoryRegistry_ReturnsCopies(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.CreateTenant(ctx, sampleTenant("acme"), nil))

	got, err := reg.GetTenant(ctx, "acme")
	require.NoError(t, err)
	got.CompanyName = "mutated"

	again, err := reg.GetTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Capital", again.CompanyName)
}
