// Package middleware provides HTTP middleware for Vectra.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ClientID returns the identifier used for rate limiting: the API key when
// present, otherwise the remote address.
func ClientID(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	return r.RemoteAddr
}

// APIKeyAuth requires X-API-Key on mutating requests when a key is configured.
// GET requests and the health endpoint always pass through; an empty expected
// key disables the check entirely.
func APIKeyAuth(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" || r.Method == http.MethodGet || strings.HasSuffix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid API key"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
