package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/metrics"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/pkg/models"
)

// ColorsInput is the brand color pair of a creation request.
type ColorsInput struct {
	Primary   string `json:"primary" validate:"required,hexcolor6"`
	Secondary string `json:"secondary" validate:"required,hexcolor6"`
}

// TenantSettings is the "config" object of a creation request.
type TenantSettings struct {
	CompanyName     string      `json:"companyName" validate:"required"`
	TaxJurisdiction string      `json:"taxJurisdiction" validate:"required,oneof=US UK EU CA AU"`
	Currency        string      `json:"currency" validate:"required,oneof=USD EUR GBP CAD AUD"`
	Colors          ColorsInput `json:"colors"`
}

// CreateTenantInput is the body of a tenant creation request.
type CreateTenantInput struct {
	TenantID string         `json:"tenantId" validate:"required,min=3,max=63,tenantid"`
	Config   TenantSettings `json:"config"`
}

// URLBuilder produces the public URL of a tenant for the current deployment.
type URLBuilder interface {
	TenantURL(tenantID string) string
}

// TenantService onboards tenants and reads their configuration.
type TenantService struct {
	registry    repository.Registry
	provisioner OrgProvisioner
	urls        URLBuilder
	validate    *validator.Validate
	metrics     *metrics.Metrics
	logger      *logging.Logger
	tracer      trace.Tracer
}

// NewTenantService creates a new TenantService. m may be nil.
func NewTenantService(registry repository.Registry, provisioner OrgProvisioner, urls URLBuilder, m *metrics.Metrics, logger *logging.Logger) *TenantService {
	return &TenantService{
		registry:    registry,
		provisioner: provisioner,
		urls:        urls,
		validate:    newValidator(),
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("forgewealth/storefront/services"),
	}
}

// Create validates in, stores the tenant together with its organization and
// returns the stored configuration and the tenant URL.
//
// Errors: *ValidationError, repository.ErrConflict, or an upstream failure.
func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (*models.TenantConfig, string, error) {
	ctx, span := s.tracer.Start(ctx, "TenantService.Create",
		trace.WithAttributes(attribute.String("tenant.id", in.TenantID)))
	defer span.End()

	in.Config.CompanyName = strings.TrimSpace(in.Config.CompanyName)
	if err := s.validate.Struct(in); err != nil {
		s.metrics.ObserveTenantCreation("invalid")
		span.SetStatus(codes.Error, "validation failed")
		return nil, "", toValidationError(err)
	}

	tenant := &models.TenantConfig{
		TenantID:        in.TenantID,
		CompanyName:     in.Config.CompanyName,
		TaxJurisdiction: models.TaxJurisdiction(in.Config.TaxJurisdiction),
		Currency:        models.Currency(in.Config.Currency),
		Colors: models.Colors{
			Primary:   in.Config.Colors.Primary,
			Secondary: in.Config.Colors.Secondary,
		},
	}

	var provisioned string
	provision := func(ctx context.Context, tenantID string) (string, error) {
		orgID, err := s.provisioner.CreateOrganization(ctx, tenantID)
		if err != nil {
			return "", err
		}
		provisioned = orgID
		return orgID, nil
	}

	if err := s.registry.CreateTenant(ctx, tenant, provision); err != nil {
		if provisioned != "" {
			s.compensate(ctx, tenant.TenantID, provisioned)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.ObserveTenantCreation("conflict")
			return nil, "", err
		}
		s.metrics.ObserveTenantCreation("failed")
		return nil, "", fmt.Errorf("create tenant %s: %w", tenant.TenantID, err)
	}

	s.metrics.ObserveTenantCreation("created")
	s.logger.Info("tenant created", "tenant_id", tenant.TenantID, "org_id", tenant.OrgID)
	return tenant, s.urls.TenantURL(tenant.TenantID), nil
}

// compensate removes an organization whose tenant record was not stored.
func (s *TenantService) compensate(ctx context.Context, tenantID, orgID string) {
	if err := s.provisioner.DeleteOrganization(context.WithoutCancel(ctx), orgID); err != nil {
		s.logger.Error("failed to delete orphaned organization",
			"tenant_id", tenantID, "org_id", orgID, "error", err)
		return
	}
	s.logger.Warn("deleted orphaned organization", "tenant_id", tenantID, "org_id", orgID)
}

// Get returns the tenant or repository.ErrNotFound.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	ctx, span := s.tracer.Start(ctx, "TenantService.Get",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	t, err := s.registry.GetTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return t, err
}

// TenantURL returns the public URL of tenantID.
func (s *TenantService) TenantURL(tenantID string) string {
	return s.urls.TenantURL(tenantID)
}
