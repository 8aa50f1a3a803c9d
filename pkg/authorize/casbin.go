package authorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	casbin "github.com/casbin/casbin/v2"

	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization is the only thing services/middleware should depend on.
type IAuthorization interface {
	// Enforce answers: "may role act on object?"
	Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error)

	// Authorize checks every role of the operator and returns ErrForbidden
	// unless at least one of them is allowed.
	Authorize(ctx context.Context, claims reqctx.AuthClaims, object Resource, action Action) error

	// Role inheritance (grouping policies): g, role, parent
	AddInheritance(ctx context.Context, role, parent Role) (bool, error)

	// Permission management (policies): p, role, obj, act, eft
	AddPermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error)
	RemovePermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error)

	Raw() *casbin.SyncedEnforcer
}

// Authorization is a thin typed wrapper around casbin.SyncedEnforcer.
type Authorization struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorization wraps an already-configured Enforcer
func NewAuthorization(e *casbin.SyncedEnforcer) (IAuthorization, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: enforcer is nil", ErrInvalidArgs)
	}
	return &Authorization{enforcer: e}, nil
}

// New builds a seeded authorizer. With audit set, every decision is logged.
func New(ctx context.Context, audit bool) (IAuthorization, error) {
	e, err := NewEnforcer()
	if err != nil {
		return nil, err
	}
	auth, err := NewAuthorization(e)
	if err != nil {
		return nil, err
	}
	if err := SeedDefaultPolicies(ctx, auth); err != nil {
		return nil, err
	}
	if audit {
		auth = NewAuditedAuthorization(auth, slog.Default())
	}
	return auth, nil
}

func (a *Authorization) Raw() *casbin.SyncedEnforcer { return a.enforcer }

func (a *Authorization) Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	_ = ctx

	if role == "" {
		return false, fmt.Errorf("%w: role is empty", ErrInvalidArgs)
	}
	if _, ok := KnownResources[object]; !ok {
		return false, fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok {
		return false, fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}

	allowed, err := a.enforcer.Enforce(string(role), string(object), string(action))
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (a *Authorization) Authorize(ctx context.Context, claims reqctx.AuthClaims, object Resource, action Action) error {
	return authorize(ctx, a, claims, object, action)
}

func authorize(ctx context.Context, auth IAuthorization, claims reqctx.AuthClaims, object Resource, action Action) error {
	if claims == nil {
		return ErrNoSubjectInContext
	}
	for _, role := range RolesFor(claims.GetRoles(), claims.IsSuperuser()) {
		ok, err := auth.Enforce(ctx, role, object, action)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrForbidden
}

// ---- Grouping (roles) ----

func (a *Authorization) AddInheritance(ctx context.Context, role, parent Role) (bool, error) {
	_ = ctx
	for _, r := range []Role{role, parent} {
		if _, ok := KnownRoles[r]; !ok {
			return false, fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, r)
		}
	}
	return a.enforcer.AddGroupingPolicy(string(role), string(parent))
}

// ---- Permissions (p rules) ----

func (a *Authorization) AddPermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error) {
	_ = ctx
	if role == "" || object == "" || action == "" || effect == "" {
		return false, fmt.Errorf("%w: empty permission fields", ErrInvalidArgs)
	}
	if _, ok := KnownRoles[role]; !ok {
		return false, fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, role)
	}
	if _, ok := KnownResources[object]; !ok && object != WildcardResource {
		return false, fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok && action != WildcardAction {
		return false, fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}
	if effect != EffectAllow && effect != EffectDeny {
		return false, fmt.Errorf("%w: invalid effect: %q", ErrInvalidArgs, effect)
	}

	// p, sub(role), obj, act, eft
	return a.enforcer.AddPolicy(string(role), string(object), string(action), string(effect))
}

func (a *Authorization) RemovePermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error) {
	_ = ctx
	if role == "" || object == "" || action == "" || effect == "" {
		return false, fmt.Errorf("%w: empty permission fields", ErrInvalidArgs)
	}
	return a.enforcer.RemovePolicy(string(role), string(object), string(action), string(effect))
}
