package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

var (
	ErrNoSubjectInContext = errors.New("no subject found in context")
)

// SubjectFromContext returns the operator's user id as a string.
func SubjectFromContext(ctx context.Context) (string, error) {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// UserIDFromContext extracts the user ID as uuid.UUID from context.
// Returns uuid.Nil and error if not found.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, ErrNoSubjectInContext
	}
	userID := claims.GetUserID()
	if userID == uuid.Nil {
		return uuid.Nil, ErrNoSubjectInContext
	}
	return userID, nil
}

// RolesFromContext resolves the Casbin roles of the operator in ctx.
func RolesFromContext(ctx context.Context) ([]Role, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil {
		return nil, ErrNoSubjectInContext
	}
	return RolesFor(claims.GetRoles(), claims.IsSuperuser()), nil
}
