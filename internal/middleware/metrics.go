package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"hexserve/internal/metrics"
)

// MetricsMiddleware counts and times every request, labelled by method,
// final status and the mounted prefix the path falls under.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			start := time.Now()

			err := next(c)

			m.RequestsInFlight.Dec()
			req := c.Request()
			labels := prometheus.Labels{
				"method":      metrics.NormalizeMethod(req.Method),
				"status_code": strconv.Itoa(finalStatus(c, err)),
				"path_prefix": m.NormalizePath(req.URL.Path),
			}
			m.RequestsTotal.With(labels).Inc()
			m.RequestDuration.With(labels).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// finalStatus is the status the client receives. An uncommitted error is
// written later by the central error handler.
func finalStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
