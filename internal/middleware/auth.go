package middleware

import (
	"context"
	"net/http"
	"strings"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/session"

	"github.com/rs/zerolog"
)

// Authenticator verifies a bearer token against the live session store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and puts the
// caller's user and session ids into the request context.
func AuthMiddleware(auth Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug().Msg("Authorization header missing")
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.Debug().Msg("Invalid authorization header")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := auth.Authenticate(r.Context(), parts[1])
			if err != nil {
				logger.Debug().Err(err).Msg("Rejected session token")
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
			ctx := identity.WithUserID(r.Context(), claims.Subject)
			ctx = identity.WithSessionID(ctx, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
