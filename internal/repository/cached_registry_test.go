package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"forgewealth/storefront/internal/cache"
	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/pkg/models"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) GetTenant(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantConfig), args.Error(1)
}

func (m *MockRegistry) CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision ProvisionFunc) error {
	args := m.Called(ctx, tenant, provision)
	return args.Error(0)
}

func (m *MockRegistry) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newCached(next Registry) *CachedRegistry {
	return NewCachedRegistry(next, cache.NewMemory("test", time.Minute), time.Minute, logging.Nop())
}

func TestCachedRegistry_ServesRepeatReadsFromCache(t *testing.T) {
	next := new(MockRegistry)
	next.On("GetTenant", mock.Anything, "acme").Return(sampleTenant("acme"), nil).Once()
	reg := newCached(next)
	ctx := context.Background()

	first, err := reg.GetTenant(ctx, "acme")
	require.NoError(t, err)
	second, err := reg.GetTenant(ctx, "acme")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	next.AssertExpectations(t)
}

func TestCachedRegistry_DoesNotCacheMisses(t *testing.T) {
	next := new(MockRegistry)
	next.On("GetTenant", mock.Anything, "ghost").Return(nil, ErrNotFound).Twice()
	reg := newCached(next)
	ctx := context.Background()

	_, err := reg.GetTenant(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.GetTenant(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	next.AssertExpectations(t)
}

func TestCachedRegistry_CreatePrimesCache(t *testing.T) {
	next := new(MockRegistry)
	next.On("CreateTenant", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.TenantConfig).OrgID = "org_new"
	}).Return(nil).Once()
	reg := newCached(next)
	ctx := context.Background()

	require.NoError(t, reg.CreateTenant(ctx, sampleTenant("fresh"), nil))

	got, err := reg.GetTenant(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "org_new", got.OrgID)
	next.AssertNotCalled(t, "GetTenant", mock.Anything, "fresh")
}

func TestCachedRegistry_FailedCreateIsNotCached(t *testing.T) {
	next := new(MockRegistry)
	next.On("CreateTenant", mock.Anything, mock.Anything, mock.Anything).Return(ErrConflict).Once()
	next.On("GetTenant", mock.Anything, "taken").Return(nil, ErrNotFound).Once()
	reg := newCached(next)
	ctx := context.Background()

	assert.ErrorIs(t, reg.CreateTenant(ctx, sampleTenant("taken"), nil), ErrConflict)
	_, err := reg.GetTenant(ctx, "taken")
	assert.ErrorIs(t, err, ErrNotFound)
	next.AssertExpectations(t)
}

func TestCachedRegistry_SharedLookupSurvivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var backendCalls atomic.Int32
	var backendCtxErr atomic.Value

	next := new(MockRegistry)
	next.On("GetTenant", mock.Anything, "acme").Run(func(args mock.Arguments) {
		backendCalls.Add(1)
		close(started)
		<-release
		backendCtxErr.Store(fmt.Sprint(args.Get(0).(context.Context).Err()))
	}).Return(sampleTenant("acme"), nil).Once()
	reg := newCached(next)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := reg.GetTenant(ctxA, "acme")
		errA <- err
	}()
	<-started

	type result struct {
		tenant *models.TenantConfig
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		tenant, err := reg.GetTenant(context.Background(), "acme")
		resB <- result{tenant, err}
	}()
	// Give the second caller time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the shared lookup")
	}

	close(release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, "acme", res.tenant.TenantID)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the tenant")
	}

	assert.Equal(t, int32(1), backendCalls.Load())
	assert.Equal(t, "<nil>", backendCtxErr.Load())
	next.AssertExpectations(t)
}
