package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/gorilla/sessions"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate accepts either an Authorization bearer token or the admin
// session cookie. The session is consulted only when no header is sent.
func Authenticate(jwtSecret string, store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
					return
				}
				tokenStr = parts[1]
			} else {
				tokenStr = SessionToken(r, store)
			}

			if tokenStr == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate attaches claims when a valid bearer token or session
// is present and lets every other request through unchanged.
func OptionalAuthenticate(jwtSecret string, store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := SessionToken(r, store)
			if header := r.Header.Get("Authorization"); header != "" {
				if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenStr = parts[1]
				}
			}
			if tokenStr != "" {
				if claims, err := auth.ValidateToken(jwtSecret, tokenStr); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminPage guards server-rendered pages: no valid session token
// redirects to the login page instead of answering with JSON.
func RequireAdminPage(jwtSecret string, store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := SessionToken(r, store)
			if tokenStr == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a copy of ctx carrying claims. Used by tests and by
// handlers that authenticate outside the middleware chain.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
