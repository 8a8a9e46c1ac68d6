package auth

import (
	"net/http"
	"strings"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/config"
)

var publicRoutes = map[string]struct{}{
	"/v1/auth/register":         {},
	"/v1/auth/login":            {},
	"/v1/auth/refresh":          {},
	"/v1/auth/spotify/callback": {},
}

var publicPrefixes = []string{
	"/v1/health",
	"/v1/openapi",
}

// Middleware validates JWT tokens for protected routes.
func Middleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				// Browser websocket clients cannot set headers on the
				// upgrade request, so the handshake carries the token as a
				// query parameter instead.
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Missing Authorization header"))
				return
			}

			payload, err := VerifyToken(cfg, token)
			if err != nil {
				if err == ErrTokenExpired {
					api.WriteError(w, r, apperrors.NewUnauthorizedError("Token has expired", apperrors.ErrorCodeAuthTokenExpired))
					return
				}
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Invalid token", apperrors.ErrorCodeAuthTokenInvalid))
				return
			}

			if payload.Type != TokenTypeAccess {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Invalid token type", apperrors.ErrorCodeAuthTokenInvalid))
				return
			}

			user := User{
				ID:   payload.Sub,
				Type: payload.Type,
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

func isPublicRoute(path string) bool {
	if _, ok := publicRoutes[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
