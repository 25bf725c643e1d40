package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"principal-registry/internal/domain"
)

// Authenticate requires a valid bearer token on every request and stores the
// resulting caller identity in the request context.
func Authenticate(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized: provide a valid Bearer token")
				return
			}

			claims, err := validator.Validate(r.Context(), strings.TrimSpace(tokenStr))
			if err != nil {
				logger.Debug("bearer token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
				writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
				return
			}

			ctx := domain.WithCaller(r.Context(), claims.Caller())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextIdentity is the IdentityProvider for request handling: it reports
// the email of the caller authenticated by Authenticate.
type ContextIdentity struct{}

var _ domain.IdentityProvider = ContextIdentity{}

// CurrentCallerEmail implements domain.IdentityProvider.
func (ContextIdentity) CurrentCallerEmail(ctx context.Context) (string, bool) {
	c, ok := domain.CallerFromContext(ctx)
	if !ok || c.Email == "" {
		return "", false
	}
	return c.Email, true
}
