package handler

import (
	"errors"
	"math"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/process"

	"hexserve/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, started: time.Now()}
}

// HealthReport is the /health response body.
type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Uptime    float64        `json:"uptime"`
	Version   string         `json:"version"`
	Services  ServicesReport `json:"services"`
	Memory    MemoryReport   `json:"memory"`
}

// ServicesReport holds per-subsystem health.
type ServicesReport struct {
	FileServer FileServerReport `json:"fileServer"`
	RiotProxy  RiotProxyReport  `json:"riotProxy"`
}

// FileServerReport describes the serve directory.
type FileServerReport struct {
	Status     string `json:"status"`
	ServeDir   string `json:"serveDir"`
	URLPrefix  string `json:"urlPrefix"`
	Accessible bool   `json:"accessible"`
}

// RiotProxyReport describes the proxy configuration.
type RiotProxyReport struct {
	Status      string `json:"status"`
	Enabled     bool   `json:"enabled"`
	Configured  bool   `json:"configured"`
	ProxyPrefix string `json:"proxyPrefix"`
	BaseURL     string `json:"baseUrl"`
}

// MemoryReport holds process memory figures in megabytes.
type MemoryReport struct {
	HeapUsed  uint64 `json:"heapUsed"`
	HeapTotal uint64 `json:"heapTotal"`
	RSS       uint64 `json:"rss"`
	Unit      string `json:"unit"`
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":       "ok",
		"version":      string(h.version),
		"upstream_url": h.cfg.Riot.BaseURL,
	})
}

// Health reports per-subsystem status and memory usage. It answers 200 when
// healthy and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	report := HealthReport{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Uptime:    time.Since(h.started).Seconds(),
		Version:   string(h.version),
		Services: ServicesReport{
			FileServer: h.fileServerReport(),
			RiotProxy: RiotProxyReport{
				Status:      StatusDisabled,
				ProxyPrefix: h.cfg.Riot.ProxyPrefix,
				BaseURL:     h.cfg.Riot.BaseURL,
			},
		},
		Memory: memoryReport(),
	}

	if report.Services.FileServer.Status != StatusHealthy {
		report.Status = report.Services.FileServer.Status
	}
	if h.cfg.ProxyEnabled() {
		report.Services.RiotProxy.Status = StatusHealthy
		report.Services.RiotProxy.Enabled = true
		report.Services.RiotProxy.Configured = true
	}

	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}

// fileServerReport is healthy for a readable directory, degraded when the
// directory is missing and unhealthy otherwise.
func (h *HealthHandler) fileServerReport() FileServerReport {
	r := FileServerReport{
		Status:    StatusUnhealthy,
		ServeDir:  h.cfg.Files.ServeDir,
		URLPrefix: h.cfg.Files.URLPrefix,
	}

	info, err := os.Stat(h.cfg.Files.ServeDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.Status = StatusDegraded
		return r
	case err != nil || !info.IsDir():
		return r
	}

	f, err := os.Open(h.cfg.Files.ServeDir)
	if err != nil {
		return r
	}
	_ = f.Close()

	r.Status = StatusHealthy
	r.Accessible = true
	return r
}

func memoryReport() MemoryReport {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rss := ms.Sys
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			rss = mi.RSS
		}
	}

	return MemoryReport{
		HeapUsed:  toMB(ms.HeapAlloc),
		HeapTotal: toMB(ms.HeapSys),
		RSS:       toMB(rss),
		Unit:      "MB",
	}
}

func toMB(b uint64) uint64 {
	return uint64(math.Round(float64(b) / 1024 / 1024))
}
