package ctxkeys

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sonderhq/account-api/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey   contextKey = "user"
	ClaimsKey contextKey = "claims"
)

// User returns the authenticated caller, or nil when the request carried no
// valid bearer token.
func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Claims returns the verified JWT claims of the current request.
func Claims(ctx context.Context) jwt.MapClaims {
	claims, _ := ctx.Value(ClaimsKey).(jwt.MapClaims)
	return claims
}

func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
