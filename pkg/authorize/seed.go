package authorize

import (
	"context"
	"log/slog"
)

// SeedDefaultPolicies sets up the baseline RBAC policies.
//
//	viewer   reads reference data, sessions, analysis and the activity feed
//	assessor viewer + runs assessment flows and uploads KAMS reports
//	coach    assessor + deletes sessions
//	admin    everything
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	policies := []PermissionPolicy{
		{RoleAdmin, WildcardResource, WildcardAction, EffectAllow},

		{RoleViewer, ResourceReference, ActionRead, EffectAllow},
		{RoleViewer, ResourceSession, ActionRead, EffectAllow},
		{RoleViewer, ResourceAnalysis, ActionRead, EffectAllow},
		{RoleViewer, ResourceActivity, ActionRead, EffectAllow},

		{RoleAssessor, ResourceFlow, WildcardAction, EffectAllow},
		{RoleAssessor, ResourceSession, ActionWrite, EffectAllow},

		{RoleCoach, ResourceSession, ActionDelete, EffectAllow},
	}

	inheritance := []Inheritance{
		{RoleAssessor, RoleViewer},
		{RoleCoach, RoleAssessor},
	}

	for _, p := range policies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			logger.Debug("added policy", "role", p.Subject, "resource", p.Object, "action", p.Action)
		}
	}
	for _, in := range inheritance {
		if _, err := auth.AddInheritance(ctx, in.Role, in.Parent); err != nil {
			logger.Error("failed to add role inheritance", "role", in.Role, "parent", in.Parent, "error", err)
			return err
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(policies), "inheritance", len(inheritance))
	return nil
}
