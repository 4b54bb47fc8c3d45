package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	scopeAuth "github.com/MrEthical07/scopeAuth"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		trust     bool
		remote    string
		forwarded string
		want      string
	}{
		{"remote addr", false, "192.0.2.10:5555", "", "192.0.2.10"},
		{"forwarded ignored when untrusted", false, "192.0.2.10:5555", "203.0.113.9", "192.0.2.10"},
		{"forwarded first hop", true, "10.0.0.1:5555", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"garbage forwarded falls back", true, "10.0.0.1:5555", "not-an-ip", "10.0.0.1"},
		{"ipv6", false, "[2001:db8::1]:443", "", "2001:db8::1"},
		{"unparseable remote", false, "pipe", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := ClientIP(tc.trust)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = scopeAuth.ClientIPFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, got)
		})
	}
}
