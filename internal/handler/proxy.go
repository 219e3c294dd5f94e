package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"hexserve/internal/config"
	"hexserve/internal/middleware"
	"hexserve/internal/model"
	"hexserve/internal/service"
	"hexserve/internal/validator"
)

// relayBufferSize bounds the memory held per proxied response.
const relayBufferSize = 32 * 1024

var relayBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, relayBufferSize)
		return &b
	},
}

// ProxyHandler forwards API requests to the Riot API.
type ProxyHandler struct {
	service *service.ProxyService
	prefix  string
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		prefix:  cfg.Riot.ProxyPrefix,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the Riot API and streams the response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	upstreamPath := strings.TrimPrefix(req.URL.EscapedPath(), h.prefix)
	if upstreamPath == "" {
		upstreamPath = "/"
	}

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          upstreamPath,
		Query:         req.URL.Query(),
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		c.Response().Header()[key] = vals
	}
	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already sent: a failure from here on can only
	// truncate the body, so it is logged and not reported to the client.
	if err := relay(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

type flushWriter interface {
	io.Writer
	Flush()
}

// relay copies src to dst through a pooled fixed-size buffer, flushing after
// every chunk. It returns nil once src reports io.EOF.
func relay(dst flushWriter, src io.Reader) error {
	bp := relayBuffers.Get().(*[]byte)
	defer relayBuffers.Put(bp)
	buf := *bp

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to client: %w", werr)
			}
			dst.Flush()
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read from upstream: %w", rerr)
		}
	}
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, service.ErrMissingCredential) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Configuration Error",
			"message": "Riot API key not configured",
		})
	}

	if errors.Is(err, service.ErrInvalidBaseURL) {
		return c.JSON(http.StatusBadRequest, middleware.ValidationErrorResponse{
			Error:   "Validation Error",
			Message: "The request contains invalid parameters",
			Details: []validator.FieldError{{
				Field:    validator.BasePathParam,
				Location: "query",
				Message:  validator.ErrInvalidBaseURL.Error(),
			}},
		})
	}

	if isTimeout(err) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error":   "Gateway Timeout",
			"message": "Riot API request timed out",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error":   "Bad Gateway",
		"message": "Failed to connect to Riot API",
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
