package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tripmate-app/tripmate/internal/auth"
)

type contextKey string

const tripIDKey contextKey = "trip_id"

// publicPaths are reachable without a bearer token.
var publicPaths = []string{
	"/api/v1/token",
	"/healthz",
	"/metrics",
	"/openapi",
	"/docs",
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+".") || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RequireAuth validates the Authorization bearer token on every request
// except the public paths and stores the trip ID in the request context.
func RequireAuth(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				writeError(w, http.StatusUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), tripIDKey, claims.TripID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TripID returns the trip ID stored by RequireAuth, if any.
func TripID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tripIDKey).(string)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
