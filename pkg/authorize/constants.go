package authorize

import "strings"

type Action string
type Resource string
type Role string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"

	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionRead: {}, ActionWrite: {}, ActionDelete: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// The operator's own in-progress assessment flow.
	ResourceFlow Resource = "flow"

	// Sports, teams, players and the battery catalogue.
	ResourceReference Resource = "reference"

	// Stored sessions and results on the backend, including KAMS uploads.
	ResourceSession Resource = "session"

	ResourceAnalysis Resource = "analysis"
	ResourceActivity Resource = "activity"
)

var KnownResources = map[Resource]struct{}{
	ResourceFlow: {}, ResourceReference: {}, ResourceSession: {},
	ResourceAnalysis: {}, ResourceActivity: {},
}

// ----------------------------
// Roles
// ----------------------------

const (
	RoleAdmin    Role = "role:admin"
	RoleCoach    Role = "role:coach"
	RoleAssessor Role = "role:assessor"
	RoleViewer   Role = "role:viewer"
)

var KnownRoles = map[Role]struct{}{
	RoleAdmin: {}, RoleCoach: {}, RoleAssessor: {}, RoleViewer: {},
}

// BackendRoleToRBACRole maps backend role names (users.roles[].role_name)
// to Casbin roles.
var BackendRoleToRBACRole = map[string]Role{
	"admin":    RoleAdmin,
	"coach":    RoleCoach,
	"assessor": RoleAssessor,
	"viewer":   RoleViewer,
}

// DefaultRole is assumed for users the backend gives no known role.
const DefaultRole = RoleAssessor

// RolesFor resolves backend role names to Casbin roles. Superusers are
// admins; unknown names are ignored.
func RolesFor(names []string, superuser bool) []Role {
	if superuser {
		return []Role{RoleAdmin}
	}
	seen := map[Role]bool{}
	var out []Role
	for _, n := range names {
		r, ok := BackendRoleToRBACRole[strings.ToLower(strings.TrimSpace(n))]
		if ok && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []Role{DefaultRole}
	}
	return out
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// Permission rows: p, role, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}

// Grouping rows: g, role, parent role
type Inheritance struct {
	Role   Role
	Parent Role
}
