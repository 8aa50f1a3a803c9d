package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// AuthClaims describes the authenticated operator behind a request.
// The assessment backend issues the token; the console only reads it.
type AuthClaims interface {
	// GetUserID returns the backend user id of the operator.
	GetUserID() uuid.UUID

	// GetRoles returns the operator's backend role names.
	GetRoles() []string

	// IsSuperuser reports the backend superuser flag.
	IsSuperuser() bool

	// IsExpired returns true if the token has expired.
	IsExpired() bool
}

// WithClaims stores authentication claims in the context.
func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext retrieves authentication claims from the context.
// Returns nil if not set or if the request is not authenticated.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(keyClaims).(AuthClaims)
	return claims
}

// IsAuthenticated returns true if valid claims exist in the context.
func IsAuthenticated(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	return claims != nil && !claims.IsExpired()
}

// UserIDFromContext extracts the user ID from claims.
// Returns uuid.Nil and false if not authenticated.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	return claims.GetUserID(), true
}

// WithAccessToken stores the caller's bearer token so outbound backend calls
// can act on the operator's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyAccessToken, token)
}

// AccessTokenFromContext returns the bearer token, or "" when absent.
func AccessTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(keyAccessToken).(string)
	return tok
}
