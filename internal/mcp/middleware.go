package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/listingdraft/internal/listingapi"
)

type contextKey int

const ownerIDKey contextKey = iota

// getOwnerID extracts owner ID from context.
func getOwnerID(ctx context.Context) string {
	v, _ := ctx.Value(ownerIDKey).(string)
	return v
}

// OwnerResolver resolves an owner ID from a bearer token.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, token string) (string, error)
}

// RemoteTokens returns the listing API token held for a signed-in owner.
type RemoteTokens interface {
	Token(ownerID string) (string, bool)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver OwnerResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			ownerID, err := resolver.ResolveOwner(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if ownerID == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, ownerIDKey, ownerID)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects a default owner when auth is disabled.
func noAuthMiddleware(defaultOwner string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, ownerIDKey, defaultOwner)
			return next(ctx, method, req)
		}
	}
}

// remoteTokenMiddleware forwards the owner's signed-in listing API token to
// outbound calls.
func remoteTokenMiddleware(tokens RemoteTokens) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if ownerID := getOwnerID(ctx); ownerID != "" && tokens != nil {
				if token, ok := tokens.Token(ownerID); ok {
					ctx = listingapi.WithToken(ctx, token)
				}
			}
			return next(ctx, method, req)
		}
	}
}
