package auth

import (
	"context"
	"net/http"
	"strings"
)

// GuestUserRef is the identity of sessions without a token.
const GuestUserRef = "user:development/guest"

type contextKey string

const claimsKey contextKey = "claims"

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// UserEntityRef returns the user of ctx, or the guest ref when ctx carries no
// claims.
func UserEntityRef(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok && claims.UserEntityRef != "" {
		return claims.UserEntityRef
	}
	return GuestUserRef
}

// TokenFromRequest extracts a bearer token from the Authorization header or,
// for websocket upgrades, the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
