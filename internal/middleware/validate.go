package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"hexserve/internal/validator"
)

// ValidationErrorResponse is the 400 body for rejected proxy requests.
type ValidationErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details []validator.FieldError `json:"details"`
}

// ValidateProxyRequest returns an Echo middleware that rejects proxy requests
// whose requestBasePath override is not a Riot API host. It runs before any
// upstream connection is attempted.
func ValidateProxyRequest(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "proxy_validator")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			errs := validator.ProxyQuery(c.QueryParams())
			if len(errs) == 0 {
				return next(c)
			}

			req := c.Request()
			logger.Warn("request validation failed",
				"method", req.Method,
				"url", req.URL.String(),
				"remote_ip", c.RealIP(),
				"errors", errs,
			)

			return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation Error",
				Message: "The request contains invalid parameters",
				Details: errs,
			})
		}
	}
}
