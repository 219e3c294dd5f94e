package validator

import (
	"errors"
	"net/url"
	"testing"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"regional host", "https://euw1.api.riotgames.com", false},
		{"routing host", "https://europe.api.riotgames.com", false},
		{"uppercase host", "https://NA1.API.RIOTGAMES.COM", false},
		{"with port", "https://kr.api.riotgames.com:443", false},
		{"http scheme", "http://euw1.api.riotgames.com", true},
		{"foreign host", "https://evil.com", true},
		{"suffix attack", "https://euw1.api.riotgames.com.evil.com", true},
		{"nested subdomain", "https://a.b.api.riotgames.com", true},
		{"bare api host", "https://api.riotgames.com", true},
		{"hyphen in region", "https://eu-w1.api.riotgames.com", true},
		{"userinfo", "https://user@euw1.api.riotgames.com", true},
		{"empty", "", true},
		{"not a url", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BaseURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BaseURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("error = %v, want ErrInvalidBaseURL", err)
			}
		})
	}
}

func TestProxyQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantError bool
	}{
		{"no override", url.Values{"count": {"5"}}, false},
		{"valid override", url.Values{BasePathParam: {"https://na1.api.riotgames.com"}}, false},
		{"open relay attempt", url.Values{BasePathParam: {"https://evil.com"}}, true},
		{"empty override", url.Values{BasePathParam: {""}}, true},
		{"repeated override", url.Values{BasePathParam: {"https://na1.api.riotgames.com", "https://kr.api.riotgames.com"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ProxyQuery(tt.query)
			if (len(errs) > 0) != tt.wantError {
				t.Fatalf("ProxyQuery() = %v, wantError %v", errs, tt.wantError)
			}
			for _, fe := range errs {
				if fe.Field != BasePathParam {
					t.Errorf("Field = %q, want %q", fe.Field, BasePathParam)
				}
				if fe.Location != "query" {
					t.Errorf("Location = %q, want %q", fe.Location, "query")
				}
				if fe.Message == "" {
					t.Error("expected non-empty Message")
				}
			}
		})
	}
}
