// Package middleware holds the HTTP middleware for the management API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gosuda/courier/internal/auth"
)

// Auth requires a valid bearer JWT signed with secret. When secret is empty
// the middleware is a no-op and the API runs unauthenticated.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			tok := extractBearer(r)
			if tok != "" {
				if _, err := auth.ValidateToken(secret, tok); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}
