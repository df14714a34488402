package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"forgewealth/storefront/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// problem writes an RFC 7807 response through echo.
func problem(c echo.Context, status int, detail string, fields []models.FieldProblem) error {
	body, err := json.Marshal(models.ProblemDetails{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   fields,
	})
	if err != nil {
		return err
	}
	return c.Blob(status, models.ProblemContentType, body)
}

// ErrorHandler renders errors that reach echo as problem details. Internal
// causes are logged, never returned to the client.
func ErrorHandler(logger Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				detail = msg
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("internal error", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
			detail = http.StatusText(status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = problem(c, status, detail, nil)
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err)
		}
	}
}
