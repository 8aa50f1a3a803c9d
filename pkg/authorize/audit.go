package authorize

import (
	"context"
	"log/slog"
	"time"

	casbin "github.com/casbin/casbin/v2"

	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

// AuditedAuthorization wraps an IAuthorization implementation with audit logging.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{
		inner:  inner,
		logger: logger,
	}
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	return a.inner.Enforce(ctx, role, object, action)
}

func (a *AuditedAuthorization) Authorize(ctx context.Context, claims reqctx.AuthClaims, object Resource, action Action) error {
	start := time.Now()
	err := authorize(ctx, a.inner, claims, object, action)
	duration := time.Since(start)

	attrs := []any{
		"resource", string(object),
		"action", string(action),
		"allowed", err == nil,
		"duration_ms", duration.Milliseconds(),
		"request_id", reqctx.RequestIDFromContext(ctx),
	}
	if claims != nil {
		attrs = append(attrs, "subject", claims.GetUserID().String(), "roles", claims.GetRoles())
	}

	switch {
	case err == nil:
		a.logger.Debug("authz_decision", attrs...)
	case err == ErrForbidden:
		a.logger.Warn("authz_decision", attrs...)
	default:
		attrs = append(attrs, "error", err.Error())
		a.logger.Error("authz_decision", attrs...)
	}
	return err
}

func (a *AuditedAuthorization) AddInheritance(ctx context.Context, role, parent Role) (bool, error) {
	added, err := a.inner.AddInheritance(ctx, role, parent)

	attrs := []any{
		"operation", "add_inheritance",
		"role", string(role),
		"parent", string(parent),
		"added", added,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
		a.logger.Error("authz_role_change", attrs...)
	} else {
		a.logger.Info("authz_role_change", attrs...)
	}
	return added, err
}

func (a *AuditedAuthorization) AddPermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error) {
	added, err := a.inner.AddPermission(ctx, role, object, action, effect)
	a.logPermission("add_permission", role, object, action, effect, added, err)
	return added, err
}

func (a *AuditedAuthorization) RemovePermission(ctx context.Context, role Role, object Resource, action Action, effect PolicyEffect) (bool, error) {
	removed, err := a.inner.RemovePermission(ctx, role, object, action, effect)
	a.logPermission("remove_permission", role, object, action, effect, removed, err)
	return removed, err
}

func (a *AuditedAuthorization) logPermission(op string, role Role, object Resource, action Action, effect PolicyEffect, changed bool, err error) {
	attrs := []any{
		"operation", op,
		"role", string(role),
		"resource", string(object),
		"action", string(action),
		"effect", string(effect),
		"changed", changed,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
		a.logger.Error("authz_permission_change", attrs...)
	} else {
		a.logger.Info("authz_permission_change", attrs...)
	}
}

func (a *AuditedAuthorization) Raw() *casbin.SyncedEnforcer {
	return a.inner.Raw()
}
