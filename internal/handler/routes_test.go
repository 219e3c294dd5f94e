package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"hexserve/internal/client"
	"hexserve/internal/config"
	"hexserve/internal/fileserver"
	"hexserve/internal/metrics"
	"hexserve/internal/service"
)

func newRoutedEcho(t *testing.T, apiKey string) *echo.Echo {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(upstream.Close)

	root := t.TempDir()
	mustWrite(t, root+"/notes.json", `{"a":1}`)

	cfg := proxyConfig(upstream.URL, apiKey, 10)
	cfg.Files = config.FilesConfig{ServeDir: root, URLPrefix: "/latest"}
	cfg.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}

	logger := discardLogger()
	m := metrics.New("/latest", "/riot-api", "/health", "/healthz", "/status", "/metrics")

	r, _, err := fileserver.NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	svc, err := service.NewProxyServiceForTest(client.NewUpstreamClient(cfg, logger, m), cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyServiceForTest: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)
	RegisterRoutes(e, cfg, logger,
		NewBrowseHandler(r, cfg, logger, m),
		NewProxyHandler(svc, cfg, logger),
		NewHealthHandler(cfg, "test"),
		NewRootHandler(cfg),
		m,
	)
	return e
}

func TestRegisterRoutes_Wiring(t *testing.T) {
	e := newRoutedEcho(t, "test-key")

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /", http.MethodGet, "/", http.StatusOK},
		{"GET /health", http.MethodGet, "/health", http.StatusOK},
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /status", http.MethodGet, "/status", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET /latest", http.MethodGet, "/latest", http.StatusOK},
		{"GET /latest/notes.json", http.MethodGet, "/latest/notes.json", http.StatusOK},
		{"HEAD /latest/notes.json", http.MethodHead, "/latest/notes.json", http.StatusOK},
		{"POST /latest is not allowed", http.MethodPost, "/latest/notes.json", http.StatusMethodNotAllowed},
		{"GET /riot-api/lol/x", http.MethodGet, "/riot-api/lol/x", http.StatusOK},
		{"POST /riot-api/lol/x", http.MethodPost, "/riot-api/lol/x", http.StatusOK},
		{"GET /riot-api", http.MethodGet, "/riot-api", http.StatusOK},
		{"foreign override rejected", http.MethodGet, "/riot-api/lol/x?requestBasePath=https://evil.example.com", http.StatusBadRequest},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRegisterRoutes_ProxyDisabledWithoutKey(t *testing.T) {
	e := newRoutedEcho(t, "")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/riot-api/lol/x", http.NoBody))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), `"Not found"`) {
		t.Errorf("body = %q, want JSON not found", rec.Body.String())
	}
}

func TestRegisterRoutes_MetricsExposition(t *testing.T) {
	e := newRoutedEcho(t, "test-key")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/latest/notes.json", http.NoBody))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if !strings.Contains(rec.Body.String(), "hexserve_file_responses_total") {
		t.Error("metrics output should include file response counter")
	}
}
