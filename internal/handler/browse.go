package handler

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"

	"hexserve/internal/config"
	"hexserve/internal/fileserver"
	"hexserve/internal/metrics"
)

// BrowseHandler serves files and directory indexes below the serve root.
type BrowseHandler struct {
	resolver *fileserver.Resolver
	prefix   string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewBrowseHandler creates a BrowseHandler. The metrics parameter is
// optional.
func NewBrowseHandler(r *fileserver.Resolver, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BrowseHandler {
	return &BrowseHandler{
		resolver: r,
		prefix:   cfg.Files.URLPrefix,
		logger:   logger.With("component", "file_browser"),
		metrics:  m,
	}
}

// Handle answers one browse request: resolve, stat, then list or stream.
func (h *BrowseHandler) Handle(c echo.Context) error {
	req := c.Request()
	requestPath := strings.TrimPrefix(req.URL.Path, h.prefix)

	target, err := h.resolver.Resolve(requestPath)
	if err != nil {
		h.count("forbidden")
		if h.metrics != nil {
			h.metrics.TraversalRejected.Inc()
		}
		h.logger.Warn("path traversal attempt blocked",
			"type", "warning",
			"request_path", requestPath,
			"remote_ip", c.RealIP(),
			"user_agent", req.UserAgent(),
		)
		return c.String(http.StatusForbidden, "Forbidden")
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			h.count("not_found")
			return c.String(http.StatusNotFound, "Not Found")
		}
		return h.fail(c, err)
	}

	if info.IsDir() {
		return h.serveDir(c, target)
	}
	return h.serveFile(c, target, info)
}

func (h *BrowseHandler) serveDir(c echo.Context, dir string) error {
	entries, err := h.resolver.List(dir, h.prefix)
	if err != nil {
		return h.fail(c, err)
	}

	idx := fileserver.Index{Path: "/", Entries: entries}
	if rel := h.resolver.Rel(dir); rel != "" {
		idx.Path = "/" + rel + "/"
		parent := path.Dir(rel)
		if parent == "." {
			parent = ""
		}
		idx.Parent = fileserver.EscapeLink(h.prefix + "/" + parent)
	}

	var buf bytes.Buffer
	if err := fileserver.RenderIndex(&buf, idx); err != nil {
		return h.fail(c, err)
	}

	h.count("directory")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *BrowseHandler) serveFile(c echo.Context, name string, info os.FileInfo) error {
	f, err := os.Open(name)
	if err != nil {
		return h.fail(c, err)
	}
	defer func() { _ = f.Close() }()

	h.count("file")
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size(), 10))
	return c.Stream(http.StatusOK, contentType(name), f)
}

// contentType is application/json for .json files and plain text otherwise.
func contentType(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return echo.MIMEApplicationJSON
	}
	return echo.MIMETextPlainCharsetUTF8
}

// fail logs err with request context and answers a generic 500, unless the
// response has already started.
func (h *BrowseHandler) fail(c echo.Context, err error) error {
	req := c.Request()
	h.count("error")
	h.logger.Error("file viewer error",
		"err", err,
		"method", req.Method,
		"url", req.URL.Path,
		"remote_ip", c.RealIP(),
	)
	if c.Response().Committed {
		return nil
	}
	return c.String(http.StatusInternalServerError, "Internal Server Error")
}

func (h *BrowseHandler) count(kind string) {
	if h.metrics != nil {
		h.metrics.FileResponses.WithLabelValues(kind).Inc()
	}
}
