package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/metrics"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/pkg/models"
)

type staticURLs struct{}

func (staticURLs) TenantURL(id string) string { return "https://" + id + ".forgewealth.app" }

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

func (m *MockRegistry) CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision repository.ProvisionFunc) error {
	args := m.Called(ctx, tenant, provision)
	return args.Error(0)
}

func (m *MockRegistry) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// recordingProvisioner records deleted organizations.
type recordingProvisioner struct {
	mu        sync.Mutex
	createErr error
	deleted   []string
}

func (p *recordingProvisioner) CreateOrganization(_ context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	return "org-" + name, nil
}

func (p *recordingProvisioner) DeleteOrganization(_ context.Context, orgID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, orgID)
	return nil
}

func validInput(id string) CreateTenantInput {
	return CreateTenantInput{
		TenantID: id,
		Config: TenantSettings{
			CompanyName:     "Acme Wealth",
			TaxJurisdiction: "US",
			Currency:        "USD",
			Colors:          ColorsInput{Primary: "#1E40AF", Secondary: "#60A5FA"},
		},
	}
}

func newService(reg repository.Registry, prov OrgProvisioner) (*TenantService, *metrics.Metrics) {
	m := metrics.New()
	return NewTenantService(reg, prov, staticURLs{}, m, logging.Nop()), m
}

func TestTenantService_Create(t *testing.T) {
	reg := repository.NewMemoryRegistry()
	prov := &recordingProvisioner{}
	svc, m := newService(reg, prov)
	ctx := context.Background()

	in := validInput("acme")
	in.Config.CompanyName = "  Acme Wealth  "
	tenant, url, err := svc.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "https://acme.forgewealth.app", url)
	assert.Equal(t, "Acme Wealth", tenant.CompanyName)
	assert.Equal(t, "org-acme", tenant.OrgID)
	assert.False(t, tenant.CreatedAt.IsZero())

	stored, err := svc.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, tenant, stored)
	assert.Equal(t, models.TaxJurisdictionUS, stored.TaxJurisdiction)
	assert.Equal(t, "https://acme.forgewealth.app", svc.TenantURL("acme"))

	count, err := testutil.GatherAndCount(m.Gatherer(), "storefront_tenant_creations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTenantService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateTenantInput)
		field  string
	}{
		{"missing id", func(in *CreateTenantInput) { in.TenantID = "" }, "tenantId"},
		{"id too short", func(in *CreateTenantInput) { in.TenantID = "ab" }, "tenantId"},
		{"id uppercase", func(in *CreateTenantInput) { in.TenantID = "Acme" }, "tenantId"},
		{"id leading hyphen", func(in *CreateTenantInput) { in.TenantID = "-acme" }, "tenantId"},
		{"id trailing hyphen", func(in *CreateTenantInput) { in.TenantID = "acme-" }, "tenantId"},
		{"id underscore", func(in *CreateTenantInput) { in.TenantID = "ac_me" }, "tenantId"},
		{"blank company", func(in *CreateTenantInput) { in.Config.CompanyName = "   " }, "config.companyName"},
		{"unknown jurisdiction", func(in *CreateTenantInput) { in.Config.TaxJurisdiction = "DE" }, "config.taxJurisdiction"},
		{"unknown currency", func(in *CreateTenantInput) { in.Config.Currency = "JPY" }, "config.currency"},
		{"color without hash", func(in *CreateTenantInput) { in.Config.Colors.Primary = "1E40AF" }, "config.colors.primary"},
		{"short color", func(in *CreateTenantInput) { in.Config.Colors.Secondary = "#FFF" }, "config.colors.secondary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := new(MockRegistry)
			svc, _ := newService(reg, &recordingProvisioner{})
			in := validInput("acme")
			tt.mutate(&in)

			_, _, err := svc.Create(context.Background(), in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.Contains(t, fields, tt.field)
			reg.AssertNotCalled(t, "CreateTenant", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTenantService_CreateConflict(t *testing.T) {
	reg := repository.NewMemoryRegistry()
	prov := &recordingProvisioner{}
	svc, _ := newService(reg, prov)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, validInput("acme"))
	require.NoError(t, err)

	second := validInput("acme")
	second.Config.CompanyName = "Impostor"
	_, _, err = svc.Create(ctx, second)
	assert.ErrorIs(t, err, repository.ErrConflict)

	stored, err := svc.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Wealth", stored.CompanyName)
	assert.Empty(t, prov.deleted)
}

func TestTenantService_CreateProvisionFailure(t *testing.T) {
	reg := repository.NewMemoryRegistry()
	svc, _ := newService(reg, &recordingProvisioner{createErr: errors.New("idp down")})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, validInput("acme"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrConflict)

	_, err = svc.Get(ctx, "acme")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTenantService_CompensatesWhenStoreFails(t *testing.T) {
	reg := new(MockRegistry)
	prov := &recordingProvisioner{}
	reg.On("CreateTenant", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			provision := args.Get(2).(repository.ProvisionFunc)
			_, err := provision(args.Get(0).(context.Context), "acme")
			require.NoError(t, err)
		}).
		Return(errors.New("connection reset"))
	svc, _ := newService(reg, prov)

	_, _, err := svc.Create(context.Background(), validInput("acme"))
	require.Error(t, err)
	assert.Equal(t, []string{"org-acme"}, prov.deleted)
	reg.AssertExpectations(t)
}

func TestTenantService_GetNotFound(t *testing.T) {
	svc, _ := newService(repository.NewMemoryRegistry(), LocalOrgProvisioner{})
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
