// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's id, display name and a found flag.
// ok=true means an authenticated principal with a valid ObjectID.
func UserCtx(r *http.Request) (userID primitive.ObjectID, name string, ok bool) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok || p.ID.IsZero() {
		return primitive.NilObjectID, "", false
	}
	return p.ID, p.Name, true
}

// RoleSource answers "what role does this user hold in this workspace".
// The memberships store implements it.
type RoleSource interface {
	RoleOf(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, bool, error)
}

// Authority is the single place workspace permissions are decided. Role
// lookups always hit the RoleSource so a revoked membership takes effect on
// the next request.
type Authority struct {
	roles RoleSource
	enf   *casbin.Enforcer
}

// New builds the casbin enforcer from the in-code RBAC model and policy.
func New(roles RoleSource) (*Authority, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	for role, acts := range grants {
		for _, a := range acts {
			if _, err := enf.AddPolicy(string(role), string(a)); err != nil {
				return nil, fmt.Errorf("authz policy %s %s: %w", role, a, err)
			}
		}
	}
	for _, pair := range inherits {
		if _, err := enf.AddGroupingPolicy(string(pair[0]), string(pair[1])); err != nil {
			return nil, fmt.Errorf("authz grouping %s>%s: %w", pair[0], pair[1], err)
		}
	}
	return &Authority{roles: roles, enf: enf}, nil
}

// Allowed reports whether role grants act. Unknown roles grant nothing.
func (a *Authority) Allowed(role models.Role, act Action) bool {
	if role == "" {
		return false
	}
	ok, err := a.enf.Enforce(string(role), string(act))
	return err == nil && ok
}

// RoleOf returns the caller's role in the workspace; ok is false for
// non-members.
func (a *Authority) RoleOf(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, bool, error) {
	return a.roles.RoleOf(ctx, userID, workspaceID)
}

/* ------------------------------ predicates ------------------------------ */

// CanManageWorkspace: rename, delete, invite, change roles, remove members.
func (a *Authority) CanManageWorkspace(role models.Role) bool {
	return a.Allowed(role, ActWorkspaceManage)
}

// CanMutateProjectContent: create, edit, move and delete work items.
func (a *Authority) CanMutateProjectContent(role models.Role) bool {
	return a.Allowed(role, ActContentWrite)
}

func (a *Authority) CanCreateProject(role models.Role) bool {
	return a.Allowed(role, ActProjectCreate)
}

// CanEditProject allows admins on any project and anyone on projects they
// created, provided they are still a member.
func (a *Authority) CanEditProject(userID primitive.ObjectID, p models.Project, role models.Role) bool {
	if a.Allowed(role, ActProjectEditAny) {
		return true
	}
	return role != "" && p.CreatorID == userID
}

/* ------------------------------- require -------------------------------- */

// RequireMember resolves the caller's role or fails with Forbidden.
func (a *Authority) RequireMember(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, error) {
	role, ok, err := a.roles.RoleOf(ctx, userID, workspaceID)
	if err != nil {
		return "", apperr.Internal("authz.RoleOf", err)
	}
	if !ok {
		return "", apperr.Forbidden("You are not a member of this workspace.")
	}
	return role, nil
}

// RequireAction resolves the role and checks act in one step.
func (a *Authority) RequireAction(ctx context.Context, userID, workspaceID primitive.ObjectID, act Action) (models.Role, error) {
	role, err := a.RequireMember(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !a.Allowed(role, act) {
		return role, apperr.Forbidden("Your role does not allow this action.")
	}
	return role, nil
}

func (a *Authority) RequireManage(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, error) {
	role, err := a.RequireMember(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !a.CanManageWorkspace(role) {
		return role, apperr.Forbidden("Only workspace admins can do this.")
	}
	return role, nil
}

func (a *Authority) RequireContentWrite(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, error) {
	role, err := a.RequireMember(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !a.CanMutateProjectContent(role) {
		return role, apperr.Forbidden("Viewers cannot modify project content.")
	}
	return role, nil
}

// RequireEditProject checks membership in the project's workspace first, then
// admin-or-creator.
func (a *Authority) RequireEditProject(ctx context.Context, userID primitive.ObjectID, p models.Project) (models.Role, error) {
	role, err := a.RequireMember(ctx, userID, p.WorkspaceID)
	if err != nil {
		return "", err
	}
	if !a.CanEditProject(userID, p, role) {
		return role, apperr.Forbidden("Only admins or the project creator can change this project.")
	}
	return role, nil
}
