// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth guards operator endpoints with a static API token.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/vidsync/internal/log"
)

// HeaderAPIToken is accepted when no Authorization header is present.
const HeaderAPIToken = "X-API-Token"

// ExtractToken retrieves the API token from the request.
// Precedence: Authorization: Bearer, then X-API-Token.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIToken))
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a token from r and validates it against expected.
func AuthorizeRequest(r *http.Request, expected string) bool {
	if r == nil {
		return false
	}
	return AuthorizeToken(ExtractToken(r), expected)
}

// Middleware rejects requests without a valid token. An empty expected
// token locks the routes entirely.
func Middleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AuthorizeRequest(r, expected) {
				logger := log.WithComponentFromContext(r.Context(), "auth")
				logger.Warn().
					Str(log.FieldEvent, "auth.rejected").
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("unauthorized request")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
