package domain

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// UserContextKey carries *UserClaims on authenticated request contexts.
const UserContextKey contextKey = "user_claims"

// UserClaims is the identity extracted from a validated access token.
type UserClaims struct {
	Subject uuid.UUID
	Email   string
}

// TokenValidator turns a bearer token into verified claims.
type TokenValidator interface {
	ValidateAccessToken(token string) (*UserClaims, error)
}

// ClaimsFromContext returns the authenticated identity, if any.
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*UserClaims)
	return claims, ok && claims != nil
}
