// internal/app/system/authz/roles.go
package authz

import "github.com/dalemusser/planhub/internal/domain/models"

// Action names a permission checked against a workspace role.
type Action string

const (
	ActWorkspaceRead   Action = "workspace:read"
	ActWorkspaceManage Action = "workspace:manage"
	ActProjectCreate   Action = "project:create"
	ActProjectEditAny  Action = "project:edit-any"
	ActContentWrite    Action = "content:write"
)

// RBAC model: a role inherits every permission of the roles below it.
const rbacModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act
`

// grants lists what each role adds on top of the roles it inherits.
var grants = map[models.Role][]Action{
	models.RoleViewer: {ActWorkspaceRead},
	models.RoleMember: {ActProjectCreate, ActContentWrite},
	models.RoleAdmin:  {ActWorkspaceManage, ActProjectEditAny},
}

// inherits is the role hierarchy ADMIN > MEMBER > VIEWER.
var inherits = [][2]models.Role{
	{models.RoleAdmin, models.RoleMember},
	{models.RoleMember, models.RoleViewer},
}
