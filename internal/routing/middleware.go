package routing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/pkg/models"
)

type contextKey struct{}

// WithTenant returns a context carrying the resolved tenant ID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

// TenantFromContext returns the tenant ID the resolver rewrote the request
// for. It is empty for requests that were not rewritten.
func TenantFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// PrincipalFunc extracts the caller from a request.
type PrincipalFunc func(r *http.Request) models.Principal

// MiddlewareConfig configures Resolver.Middleware.
type MiddlewareConfig struct {
	// Principal identifies the caller. Nil means everybody is anonymous.
	Principal PrincipalFunc
	// NotFound renders the response for unknown or malformed tenants.
	// Defaults to echo.ErrNotFound.
	NotFound func(c echo.Context, tenantID string) error
	Logger   *logging.Logger
}

// Middleware applies resolver decisions. It must be registered with
// echo.Pre so the rewritten path is what the router sees.
func (r *Resolver) Middleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Only pay for token verification when a tenant is in play.
			cls := r.cfg.Classify(req.Host, req.URL.Path)
			var principal models.Principal
			if cfg.Principal != nil && cls.Found() {
				principal = cfg.Principal(req)
			}

			d, err := r.Decide(req.Context(), cls, Request{
				Host:      req.Host,
				Path:      req.URL.Path,
				RawQuery:  req.URL.RawQuery,
				Principal: principal,
			})
			if err != nil {
				cfg.Logger.Error("tenant resolution failed", "host", req.Host, "path", req.URL.Path, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}

			switch d.Outcome {
			case Rewrite:
				cfg.Logger.Debug("tenant request rewritten", "tenant_id", d.TenantID, "from", req.URL.Path, "to", d.Path)
				req.URL.Path = d.Path
				req.URL.RawPath = ""
				req.URL.RawQuery = d.RawQuery
				c.SetRequest(req.WithContext(WithTenant(req.Context(), d.TenantID)))
			case Deny:
				cfg.Logger.Info("tenant request denied", "tenant_id", d.TenantID, "reason", d.Reason.String())
				if d.Reason == Forbidden {
					return writeForbidden(c)
				}
				if cfg.NotFound != nil {
					return cfg.NotFound(c, d.TenantID)
				}
				return echo.ErrNotFound
			}
			return next(c)
		}
	}
}

func writeForbidden(c echo.Context) error {
	body, err := json.Marshal(models.ProblemDetails{
		Type:     "about:blank",
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   "You do not have access to this tenant",
		Instance: c.Request().URL.Path,
	})
	if err != nil {
		return err
	}
	return c.Blob(http.StatusForbidden, models.ProblemContentType, body)
}
