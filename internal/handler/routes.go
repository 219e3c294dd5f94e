package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hexserve/internal/config"
	"hexserve/internal/metrics"
	"hexserve/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The proxy
// routes exist only when an API key is configured.
func RegisterRoutes(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	browse *BrowseHandler,
	proxy *ProxyHandler,
	health *HealthHandler,
	root *RootHandler,
	m *metrics.Metrics,
) {
	e.GET("/health", health.Health)
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	readOnly := []string{http.MethodGet, http.MethodHead}
	e.Match(readOnly, cfg.Files.URLPrefix, browse.Handle)
	e.Match(readOnly, cfg.Files.URLPrefix+"/*", browse.Handle)

	if cfg.ProxyEnabled() {
		g := e.Group(cfg.Riot.ProxyPrefix, middleware.ValidateProxyRequest(logger))
		g.Any("", proxy.Handle)
		g.Any("/*", proxy.Handle)
		logger.Info("riot api proxy enabled",
			"prefix", cfg.Riot.ProxyPrefix,
			"base_url", cfg.Riot.BaseURL,
		)
	} else {
		logger.Warn("riot api proxy disabled: no API key configured")
	}

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.GET("/", root.Handle)
}
