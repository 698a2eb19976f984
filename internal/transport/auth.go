package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/listingdraft/internal/listingapi"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type ownerKey struct{}

// OwnerResolver resolves an owner ID from a bearer token.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, token string) (string, error)
}

// RemoteTokens returns the listing API token held for a signed-in owner.
type RemoteTokens interface {
	Token(ownerID string) (string, bool)
}

// OwnerFromContext returns the owner ID from context, if present.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerKey{}).(string)
	return ownerID, ok && ownerID != ""
}

// WithOwner stores the owner ID in ctx.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			ownerID, err := resolver.ResolveOwner(r.Context(), token)
			if err != nil || ownerID == "" {
				WriteError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
		})
	}
}

// StaticOwnerMiddleware assigns every request to one owner when auth is
// disabled.
func StaticOwnerMiddleware(ownerID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
		})
	}
}

// RemoteTokenMiddleware forwards the owner's signed-in listing API token
// to outbound calls. Owners that are not signed in fall back to the
// client's configured token.
func RemoteTokenMiddleware(tokens RemoteTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ownerID, ok := OwnerFromContext(r.Context()); ok && tokens != nil {
				if token, ok := tokens.Token(ownerID); ok {
					r = r.WithContext(listingapi.WithToken(r.Context(), token))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
