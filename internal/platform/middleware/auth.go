package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"hrgate/internal/platform/secrets"
	id "hrgate/pkg/domain"
	"hrgate/pkg/requestcontext"
)

// TokenValidator validates an employee access token and returns the user it
// belongs to. Implemented by internal/jwttoken.Service.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (id.UserID, error)
}

// RequireAuth validates the bearer token and injects the user ID into the
// request context. Requests without a valid token never reach handlers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			userID, err := validator.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected access token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards HR administration routes with a shared token whose
// bcrypt hash is configured at deploy time. An empty hash disables the
// admin surface entirely (fail closed).
func RequireAdmin(adminTokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminTokenHash == "" {
				http.Error(w, "admin access not configured", http.StatusForbidden)
				return
			}
			token := r.Header.Get("X-Admin-Token")
			if token == "" {
				http.Error(w, "admin token required", http.StatusForbidden)
				return
			}
			if err := secrets.Verify(token, adminTokenHash); err != nil {
				logger.WarnContext(r.Context(), "rejected admin token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				http.Error(w, "invalid admin token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
