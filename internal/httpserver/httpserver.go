// Package httpserver builds the Echo instance shared by the storefront
// commands. Request logging, metrics, tracing and panic recovery run in the
// Pre chain ahead of tenant resolution, so requests the resolver denies or
// fails are observed like routed ones.
package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"forgewealth/storefront/internal/api"
	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/metrics"
	"forgewealth/storefront/internal/routing"
)

// Options configures New.
type Options struct {
	ServiceName string
	Logger      *logging.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Resolver may be nil, then no tenant resolution happens.
	Resolver   *routing.Resolver
	Resolution routing.MiddlewareConfig
}

// New returns an Echo instance with the middleware chain installed. Routes
// and the renderer are added by the caller.
func New(opts Options) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Resolution.Logger == nil {
		opts.Resolution.Logger = opts.Logger
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.ErrorHandler(opts.Logger)

	// Outermost first.
	e.Pre(middleware.RequestID())
	e.Pre(RequestLogger(opts.Logger))
	if opts.Metrics != nil {
		e.Pre(opts.Metrics.Middleware())
	}
	e.Pre(otelecho.Middleware(opts.ServiceName))
	e.Pre(nameSpanAfterRoute)
	// The recovered panic goes back up as an error so the logger and the
	// metrics above see a 500.
	e.Pre(middleware.RecoverWithConfig(middleware.RecoverConfig{DisableErrorHandler: true}))
	if opts.Resolver != nil {
		e.Pre(opts.Resolver.Middleware(opts.Resolution))
	}
	return e
}

// RequestLogger writes one access log line per request through logger.
// Failed requests are handed to the error handler first so the logged
// status is the one the client got.
func RequestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogHost:      true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"host", v.Host,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if route := c.Path(); route != "" {
				args = append(args, "route", route)
			}
			if tenantID, ok := routing.TenantFromContext(c.Request().Context()); ok {
				args = append(args, "tenant_id", tenantID)
			}
			if v.Error != nil {
				logger.Error("request failed", append(args, "error", v.Error)...)
				return nil
			}
			logger.Info("request", args...)
			return nil
		},
	})
}

// nameSpanAfterRoute renames the server span once the router matched. The
// tracing middleware starts the span in the Pre chain, before any route is
// known.
func nameSpanAfterRoute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if route := c.Path(); route != "" {
			span := trace.SpanFromContext(c.Request().Context())
			span.SetName(c.Request().Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}
		return err
	}
}
