package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/routing"
	"forgewealth/storefront/internal/web"
	"forgewealth/storefront/pkg/models"
)

// TenantReader loads tenant configurations.
type TenantReader interface {
	Get(ctx context.Context, tenantID string) (*models.TenantConfig, error)
}

// Pages serves the HTML pages. Rendering goes through the echo.Renderer
// installed on the server.
type Pages struct {
	tenants TenantReader
	form    web.IntakeForm
	logger  Logger
	now     func() time.Time
}

// NewPages creates the page handlers. form is rendered on the root page.
func NewPages(tenants TenantReader, form web.IntakeForm, logger Logger) *Pages {
	return &Pages{tenants: tenants, form: form, logger: logger, now: time.Now}
}

// RegisterPages mounts the intake form and the tenant dashboard routes.
func RegisterPages(router EchoRouter, p *Pages, tenantPrefix string) {
	router.GET("/", p.Index)
	router.GET(tenantPrefix+"/:tenant", p.Dashboard)
	router.GET(tenantPrefix+"/:tenant/*", p.Dashboard)
}

// Index renders the intake form
// (GET /)
func (p *Pages) Index(c echo.Context) error {
	return c.Render(http.StatusOK, web.PageIndex, p.form)
}

// Dashboard renders the themed dashboard of a tenant. Only requests the
// resolver rewrote for the same tenant are served; anything else would
// skip the access check.
// (GET /tenants/{tenant}/*)
func (p *Pages) Dashboard(c echo.Context) error {
	tenantID := c.Param("tenant")
	resolved, ok := routing.TenantFromContext(c.Request().Context())
	if !ok || resolved != tenantID {
		return p.NotFound(c, tenantID)
	}

	tenant, err := p.tenants.Get(c.Request().Context(), tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return p.NotFound(c, tenantID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	section := ""
	if rest := c.Param("*"); rest != "" {
		section = "/" + rest
	}
	return c.Render(http.StatusOK, web.PageDashboard, web.BuildDashboard(tenant, section, p.now()))
}

// NotFound renders the unknown tenant page with a 404 status.
func (p *Pages) NotFound(c echo.Context, tenantID string) error {
	return c.Render(http.StatusNotFound, web.PageNotFound, web.NotFoundPage{TenantID: tenantID})
}
