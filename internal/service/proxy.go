// Package service implements the core proxy forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"hexserve/internal/client"
	"hexserve/internal/config"
	"hexserve/internal/model"
	"hexserve/internal/validator"
)

var (
	// ErrMissingCredential is returned when no Riot API key is configured.
	ErrMissingCredential = errors.New("riot API key not configured")
	// ErrInvalidBaseURL is returned when the requestBasePath override fails validation.
	ErrInvalidBaseURL = errors.New("invalid upstream base URL")
)

// TokenHeader carries the Riot API key on every upstream request.
const TokenHeader = "X-Riot-Token"

const (
	defaultUserAgent = "hexserve-riot-proxy"
	defaultAccept    = "application/json"
)

// hopByHopHeaders are connection-scoped and never relayed to the client.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client    *client.UpstreamClient
	cfg       *config.Config
	logger    *slog.Logger
	baseURL   *url.URL
	checkBase func(string) error
}

// NewProxyService creates a ProxyService. The configured default base URL
// must pass the same allowlist as per-request overrides.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	if err := validator.BaseURL(cfg.Riot.BaseURL); err != nil {
		return nil, fmt.Errorf("riot base_url %q: %w", cfg.Riot.BaseURL, err)
	}
	return newProxyService(c, cfg, logger, validator.BaseURL)
}

// NewProxyServiceForTest creates a ProxyService without host allowlist validation.
// This is intended only for tests that use httptest servers on localhost.
func NewProxyServiceForTest(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	return newProxyService(c, cfg, logger, func(string) error { return nil })
}

func newProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, checkBase func(string) error) (*ProxyService, error) {
	u, err := url.Parse(cfg.Riot.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse riot base_url: %w", err)
	}

	return &ProxyService{
		client:    c,
		cfg:       cfg,
		logger:    logger.With("component", "proxy_service"),
		baseURL:   u,
		checkBase: checkBase,
	}, nil
}

// Forward sends a ProxyRequest to the Riot API and returns the response.
// The caller is responsible for closing the response body.
//
// The upstream base is the requestBasePath query parameter when present,
// otherwise the configured default. ErrMissingCredential is returned before
// any connection attempt when no API key is configured.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	apiKey := s.cfg.Riot.APIKey
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	base, err := s.resolveBase(pr.Query)
	if err != nil {
		return nil, err
	}

	upstreamURL := buildUpstreamURL(base, pr.Path, pr.Query)
	header := buildRequestHeaders(pr.Header, apiKey)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"host", base.Host,
		"path", pr.Path,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, upstreamURL, header, pr.Body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// resolveBase returns the override base URL from query, or the default.
func (s *ProxyService) resolveBase(query url.Values) (*url.URL, error) {
	vals, ok := query[validator.BasePathParam]
	if !ok {
		return s.baseURL, nil
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%w: %s given %d times", ErrInvalidBaseURL, validator.BasePathParam, len(vals))
	}
	if err := s.checkBase(vals[0]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	u, err := url.Parse(vals[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	return u, nil
}

// isStrippedParam reports whether a query parameter must not reach the
// upstream: the base URL override, and api_key in any casing since the Riot
// API would accept it as a credential.
func isStrippedParam(key string) bool {
	if key == validator.BasePathParam {
		return true
	}
	switch strings.ToLower(key) {
	case "api_key", "apikey":
		return true
	}
	return false
}

// buildUpstreamURL appends escapedPath to base verbatim, so encoded
// separators such as %2F stay inside one segment.
func buildUpstreamURL(base *url.URL, escapedPath string, query url.Values) string {
	u := *base
	raw := strings.TrimRight(base.EscapedPath(), "/") + escapedPath
	if p, err := url.PathUnescape(raw); err == nil {
		u.Path = p
		u.RawPath = raw
	} else {
		u.Path = raw
		u.RawPath = ""
	}
	u.Fragment = ""

	q := make(url.Values)
	for k, v := range query {
		if isStrippedParam(k) {
			continue
		}
		q[k] = v
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// buildRequestHeaders selects the headers sent upstream. The token header is
// always the configured key; a client-supplied value is discarded.
func buildRequestHeaders(src http.Header, apiKey string) http.Header {
	dst := make(http.Header)

	ua := src.Get("User-Agent")
	if ua == "" {
		ua = defaultUserAgent
	}
	dst.Set("User-Agent", ua)

	accept := src.Get("Accept")
	if accept == "" {
		accept = defaultAccept
	}
	dst.Set("Accept", accept)

	if ct := src.Get("Content-Type"); ct != "" {
		dst.Set("Content-Type", ct)
	}

	dst.Set(TokenHeader, apiKey)
	return dst
}

// filterResponseHeaders drops hop-by-hop headers and any header the
// upstream named in its Connection header.
func filterResponseHeaders(src http.Header) http.Header {
	dropped := make(map[string]bool)
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				dropped[http.CanonicalHeaderKey(name)] = true
			}
		}
	}

	dst := make(http.Header, len(src))
	for key, vals := range src {
		ck := http.CanonicalHeaderKey(key)
		if hopByHopHeaders[ck] || dropped[ck] {
			continue
		}
		dst[ck] = vals
	}
	return dst
}
