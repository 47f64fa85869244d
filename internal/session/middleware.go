package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/logger"
)

// Resolver turns an access token into the identity it was issued for.
type Resolver interface {
	Current(ctx context.Context, token string) (Identity, error)
}

// Middleware attaches the identity of a valid bearer token to the request.
// Requests without a usable token pass through anonymously; use Required on
// routes that need a signed-in user.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := resolver.Current(r.Context(), token)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("ignoring access token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			ctx = logger.Inject(ctx, logger.FromCtx(ctx).With("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Required rejects anonymous requests with 401.
func Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.Error(w, r, apperr.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects identities of any other role with 403.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.ErrUnauthorized)
				return
			}
			if id.Role != role {
				httpx.Error(w, r, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling
// back to the access_token query parameter used by browser WebSocket and
// EventSource clients, which cannot set headers.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}
