package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"hexserve/internal/client"
	"hexserve/internal/config"
	"hexserve/internal/fileserver"
	"hexserve/internal/handler"
	"hexserve/internal/logging"
	"hexserve/internal/metrics"
	"hexserve/internal/middleware"
	"hexserve/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("hexserve"),
		kong.Description("Static file browser and Riot API proxy."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newMetrics,
			newEcho,
			newResolver,
			client.NewUpstreamClient,
			service.NewProxyService,
			handler.NewBrowseHandler,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
			handler.NewRootHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startServer),
	).Run()
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) *slog.Logger {
	logger, closeFn := logging.New(cfg, os.Stdout)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return closeFn() },
	})
	return logger
}

// newMetrics labels requests by every mounted prefix so the path label stays
// bounded.
func newMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(
		cfg.Files.URLPrefix,
		cfg.Riot.ProxyPrefix,
		"/health",
		"/healthz",
		"/status",
		cfg.Metrics.Path,
	)
}

func newResolver(cfg *config.Config, logger *slog.Logger) (*fileserver.Resolver, error) {
	r, created, err := fileserver.NewResolver(cfg.Files.ServeDir)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Warn("serve directory did not exist and was created", "dir", r.Root())
	}
	return r, nil
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	// WriteTimeout is disabled (0) so large files and streamed proxy
	// responses are not cut off. The upstream timeout bounds proxied calls.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, r *fileserver.Resolver, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"version", version,
				"serve_dir", r.Root(),
				"url_prefix", cfg.Files.URLPrefix,
				"proxy_enabled", cfg.ProxyEnabled(),
				"metrics_enabled", cfg.Metrics.Enabled,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
