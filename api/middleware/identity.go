package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/api/responses"
	pkgauth "github.com/lucasrioja/storefront-backend/pkg/auth"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	pkgerrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
)

// GuestSessionHeader carries the opaque guest session id for anonymous
// shoppers. When the client has neither a token nor a session, one is minted
// here and echoed back so the client can persist it.
const GuestSessionHeader = "X-Guest-Session"

// Identity resolves every request to either an authenticated user (bearer
// token) or a guest session. A present-but-invalid token is rejected rather
// than silently downgraded to guest.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				claims, err := pkgauth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}

				ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sessionID := strings.TrimSpace(r.Header.Get(GuestSessionHeader))
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			w.Header().Set(GuestSessionHeader, sessionID)

			ctx := context.WithValue(r.Context(), ctxGuestSession, sessionID)
			if logg != nil {
				ctx = logg.WithGuestSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guest requests. Used for operations that only make
// sense for an authenticated user, like merging a guest cart at login.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
