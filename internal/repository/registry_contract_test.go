package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgewealth/storefront/pkg/models"
)

func sampleTenant(id string) *models.TenantConfig {
	return &models.TenantConfig{
		TenantID:        id,
		CompanyName:     "Acme Capital",
		TaxJurisdiction: models.TaxJurisdictionUS,
		Currency:        models.CurrencyUSD,
		Colors:          models.Colors{Primary: "#1E40AF", Secondary: "#60A5FA"},
	}
}

func staticOrg(orgID string) ProvisionFunc {
	return func(context.Context, string) (string, error) { return orgID, nil }
}

// runRegistryContract checks the behavior every Registry implementation
// shares.
func runRegistryContract(t *testing.T, newRegistry func(t *testing.T) Registry) {
	ctx := context.Background()

	t.Run("create then get returns the same configuration", func(t *testing.T) {
		reg := newRegistry(t)
		in := sampleTenant("acme")

		require.NoError(t, reg.CreateTenant(ctx, in, staticOrg("org_acme")))
		assert.Equal(t, "org_acme", in.OrgID)
		assert.False(t, in.CreatedAt.IsZero())

		got, err := reg.GetTenant(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("unknown tenant is not found", func(t *testing.T) {
		reg := newRegistry(t)
		_, err := reg.GetTenant(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate is a conflict and never overwrites", func(t *testing.T) {
		reg := newRegistry(t)
		require.NoError(t, reg.CreateTenant(ctx, sampleTenant("dup-co"), nil))

		second := sampleTenant("dup-co")
		second.CompanyName = "Impostor"
		err := reg.CreateTenant(ctx, second, staticOrg("org_other"))
		assert.ErrorIs(t, err, ErrConflict)

		got, err := reg.GetTenant(ctx, "dup-co")
		require.NoError(t, err)
		assert.Equal(t, "Acme Capital", got.CompanyName)
		assert.Empty(t, got.OrgID)
	})

	t.Run("failed provisioning stores nothing", func(t *testing.T) {
		reg := newRegistry(t)
		boom := errors.New("idp unavailable")
		err := reg.CreateTenant(ctx, sampleTenant("broken"), func(context.Context, string) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = reg.GetTenant(ctx, "broken")
		assert.ErrorIs(t, err, ErrNotFound)

		// The identifier is free again.
		assert.NoError(t, reg.CreateTenant(ctx, sampleTenant("broken"), nil))
	})

	t.Run("concurrent creates have one winner", func(t *testing.T) {
		reg := newRegistry(t)
		const n = 8
		var (
			wg        sync.WaitGroup
			wins      atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := reg.CreateTenant(ctx, sampleTenant("race"), staticOrg(fmt.Sprintf("org_%d", i)))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, ErrConflict):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load())
		assert.EqualValues(t, n-1, conflicts.Load())
	})
}
