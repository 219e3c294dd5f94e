package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"hexserve/internal/config"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(&config.Config{}, "test")
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := &config.Config{
		Riot: config.RiotConfig{BaseURL: "https://euw1.api.riotgames.com"},
	}
	h := NewHealthHandler(cfg, "1.2.3")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %q, want %q", body["version"], "1.2.3")
	}
	if body["upstream_url"] != "https://euw1.api.riotgames.com" {
		t.Errorf("upstream_url = %q", body["upstream_url"])
	}
}

func runHealth(t *testing.T, cfg *config.Config) (*httptest.ResponseRecorder, HealthReport) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", http.NoBody), rec)

	if err := NewHealthHandler(cfg, "1.0.0").Health(c); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return rec, report
}

func TestHealth_Healthy(t *testing.T) {
	cfg := &config.Config{
		Files: config.FilesConfig{ServeDir: t.TempDir(), URLPrefix: "/latest"},
		Riot: config.RiotConfig{
			APIKey:      "RGAPI-test",
			BaseURL:     "https://euw1.api.riotgames.com",
			ProxyPrefix: "/riot-api",
		},
	}

	rec, report := runHealth(t, cfg)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if report.Status != StatusHealthy {
		t.Errorf("report.Status = %q, want %q", report.Status, StatusHealthy)
	}
	if !report.Services.FileServer.Accessible {
		t.Error("fileServer should be accessible")
	}
	if report.Services.RiotProxy.Status != StatusHealthy || !report.Services.RiotProxy.Enabled {
		t.Errorf("riotProxy = %+v, want healthy and enabled", report.Services.RiotProxy)
	}
	if report.Version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", report.Version)
	}
	if report.Memory.Unit != "MB" {
		t.Errorf("memory unit = %q, want MB", report.Memory.Unit)
	}
	if report.Timestamp == "" {
		t.Error("timestamp should be set")
	}
}

func TestHealth_ProxyDisabledStaysHealthy(t *testing.T) {
	cfg := &config.Config{
		Files: config.FilesConfig{ServeDir: t.TempDir(), URLPrefix: "/latest"},
	}

	rec, report := runHealth(t, cfg)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if report.Services.RiotProxy.Status != StatusDisabled {
		t.Errorf("riotProxy.status = %q, want %q", report.Services.RiotProxy.Status, StatusDisabled)
	}
	if report.Services.RiotProxy.Configured {
		t.Error("riotProxy should not be configured")
	}
}

func TestHealth_MissingServeDir(t *testing.T) {
	cfg := &config.Config{
		Files: config.FilesConfig{ServeDir: filepath.Join(t.TempDir(), "gone")},
	}

	rec, report := runHealth(t, cfg)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if report.Status != StatusDegraded {
		t.Errorf("report.Status = %q, want %q", report.Status, StatusDegraded)
	}
	if report.Services.FileServer.Accessible {
		t.Error("fileServer should not be accessible")
	}
}

func TestHealth_ServeDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, report := runHealth(t, &config.Config{Files: config.FilesConfig{ServeDir: file}})

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("report.Status = %q, want %q", report.Status, StatusUnhealthy)
	}
}

func TestToMB(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1024 * 1024, 1},
		{3 * 1024 * 1024 / 2, 2},
		{100 * 1024 * 1024, 100},
	}
	for _, tt := range tests {
		if got := toMB(tt.in); got != tt.want {
			t.Errorf("toMB(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
