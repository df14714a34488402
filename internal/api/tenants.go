package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/services"
	"forgewealth/storefront/pkg/models"
)

// TenantService is what the API needs from services.TenantService.
type TenantService interface {
	Create(ctx context.Context, in services.CreateTenantInput) (*models.TenantConfig, string, error)
	Get(ctx context.Context, tenantID string) (*models.TenantConfig, error)
}

// Server implements ServerInterface.
type Server struct {
	tenants TenantService
	logger  Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new Server.
func NewServer(tenants TenantService, logger Logger) *Server {
	return &Server{tenants: tenants, logger: logger}
}

// CreateTenantResponse is the success body of POST /api/create-tenant.
type CreateTenantResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// CreateTenant onboards a new tenant
// (POST /api/create-tenant)
func (s *Server) CreateTenant(c echo.Context) error {
	var in services.CreateTenantInput
	if err := c.Bind(&in); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	tenant, url, err := s.tenants.Create(c.Request().Context(), in)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			fields := make([]models.FieldProblem, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, models.FieldProblem{Field: f.Field, Message: f.Message})
			}
			return problem(c, http.StatusBadRequest, "Validation failed", fields)
		case errors.Is(err, repository.ErrConflict):
			return problem(c, http.StatusConflict, "Tenant ID is already taken", nil)
		default:
			s.logger.Error("failed to create tenant", "tenant_id", in.TenantID, "error", err)
			return problem(c, http.StatusInternalServerError, "Failed to create tenant", nil)
		}
	}

	s.logger.Info("tenant onboarded", "tenant_id", tenant.TenantID, "url", url)
	return c.JSON(http.StatusOK, CreateTenantResponse{Success: true, URL: url})
}

// GetTenant returns a tenant configuration
// (GET /api/tenants/{tenantId})
func (s *Server) GetTenant(c echo.Context, tenantId string) error {
	if !models.ValidTenantID(tenantId) {
		return problem(c, http.StatusNotFound, "Tenant not found", nil)
	}

	tenant, err := s.tenants.Get(c.Request().Context(), tenantId)
	if errors.Is(err, repository.ErrNotFound) {
		return problem(c, http.StatusNotFound, "Tenant not found", nil)
	}
	if err != nil {
		s.logger.Error("failed to load tenant", "tenant_id", tenantId, "error", err)
		return problem(c, http.StatusInternalServerError, "Failed to load tenant", nil)
	}

	// The organization ID is only exposed on the authenticated admin surface.
	public := *tenant
	public.OrgID = ""
	return c.JSON(http.StatusOK, public)
}
