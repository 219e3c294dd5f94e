// Package validator checks caller-supplied upstream base URLs against the
// Riot API host pattern so the proxy cannot be used as an open relay.
package validator

import (
	"errors"
	"net/url"
	"regexp"
)

// ErrInvalidBaseURL is returned for any base URL outside the allowlist.
var ErrInvalidBaseURL = errors.New("requestBasePath must be a valid Riot Games API URL (https://{region}.api.riotgames.com)")

// riotHostPattern matches {region}.api.riotgames.com.
var riotHostPattern = regexp.MustCompile(`(?i)^[a-z0-9]+\.api\.riotgames\.com$`)

// BaseURL accepts raw only if it parses, uses https, and its hostname is a
// regional Riot API host.
func BaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidBaseURL
	}
	if u.Scheme != "https" {
		return ErrInvalidBaseURL
	}
	if u.User != nil {
		return ErrInvalidBaseURL
	}
	if !riotHostPattern.MatchString(u.Hostname()) {
		return ErrInvalidBaseURL
	}
	return nil
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field    string `json:"field"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

// BasePathParam is the query parameter that overrides the upstream base URL.
// It is a proxy control parameter and is never forwarded upstream.
const BasePathParam = "requestBasePath"

// ProxyQuery validates the proxy control parameters of query. It returns nil
// when the request may be forwarded.
func ProxyQuery(query url.Values) []FieldError {
	vals, ok := query[BasePathParam]
	if !ok {
		return nil
	}
	if len(vals) != 1 {
		return []FieldError{{
			Field:    BasePathParam,
			Location: "query",
			Message:  "requestBasePath must be a string",
		}}
	}
	if err := BaseURL(vals[0]); err != nil {
		return []FieldError{{
			Field:    BasePathParam,
			Location: "query",
			Message:  err.Error(),
		}}
	}
	return nil
}
