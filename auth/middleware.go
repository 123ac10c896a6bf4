package auth

import (
	"net/http"
	"strings"

	"github.com/Trident14/EMP-backend/apperror"
	"github.com/Trident14/EMP-backend/config"
)

// JWTMiddleware gates a route group behind bearer-token authentication.
// It extracts the token from the Authorization header, verifies it, and
// attaches the decoded claims to the request context. Requests with a
// missing, malformed, or invalid token are rejected with 401 before they
// reach business logic.
func JWTMiddleware(cfg *config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, apperror.NewAuthError("Authorization header is missing", nil))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(w, r, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil))
				return
			}

			claims, err := VerifyToken(parts[1], cfg.JWTSecret)
			if err != nil {
				WriteError(w, r, apperror.NewAuthError("invalid token", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithClaims(r.Context(), claims)))
		})
	}
}
