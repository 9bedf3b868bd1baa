// Package workspaces implements workspace lifecycle and membership
// management.
package workspaces

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/planhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/planhub/internal/app/services/invitations"
	auditstore "github.com/dalemusser/planhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/planhub/internal/app/store/notifications"
	projectstore "github.com/dalemusser/planhub/internal/app/store/projects"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	workitemstore "github.com/dalemusser/planhub/internal/app/store/workitems"
	workspacestore "github.com/dalemusser/planhub/internal/app/store/workspaces"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SearchLimit caps user search results.
const SearchLimit = 10

// minSearchLen is the shortest query that triggers a search.
const minSearchLen = 2

type Service struct {
	db          *mongo.Database
	users       *userstore.Store
	workspaces  *workspacestore.Store
	members     *membershipstore.Store
	projects    *projectstore.Store
	items       *workitemstore.Store
	notes       *notificationstore.Store
	authority   *authz.Authority
	invitations *invitations.Service
	events      *auditstore.Store
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// New wires the service to db. audit may be nil.
func New(db *mongo.Database, authority *authz.Authority, inv *invitations.Service, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		db:          db,
		users:       userstore.New(db),
		workspaces:  workspacestore.New(db),
		members:     membershipstore.New(db),
		projects:    projectstore.New(db),
		items:       workitemstore.New(db),
		notes:       notificationstore.New(db),
		authority:   authority,
		invitations: inv,
		events:      auditstore.New(db),
		audit:       audit,
		logger:      logger,
	}
}

// Summary is a workspace as listed for one member.
type Summary struct {
	models.Workspace
	Role         models.Role `json:"role"`
	MemberCount  int         `json:"memberCount"`
	ProjectCount int         `json:"projectCount"`
}

// Person is the public view of a user in member lists and search results.
// Role is only set in member lists.
type Person struct {
	ID    primitive.ObjectID `json:"id"`
	Email string             `json:"email"`
	Name  string             `json:"name"`
	Role  string             `json:"role,omitempty"`
}

func personOf(u models.User, role models.Role) Person {
	return Person{ID: u.ID, Email: u.Email, Name: u.FullName, Role: role.Display()}
}

// List returns every workspace the caller belongs to, in join order.
func (s *Service) List(ctx context.Context, callerID primitive.ObjectID) ([]Summary, error) {
	ms, err := s.members.ListByUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("workspaces.List", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	roles := make(map[primitive.ObjectID]models.Role, len(ms))
	for _, m := range ms {
		ids = append(ids, m.WorkspaceID)
		roles[m.WorkspaceID] = m.Role
	}

	wss, err := s.workspaces.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("workspaces.List", err)
	}
	byID := make(map[primitive.ObjectID]models.Workspace, len(wss))
	for _, ws := range wss {
		byID[ws.ID] = ws
	}
	memberCounts, err := s.members.CountByWorkspaces(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("workspaces.List", err)
	}
	projectCounts, err := s.projects.CountByWorkspaces(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("workspaces.List", err)
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		ws, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, Summary{
			Workspace:    ws,
			Role:         roles[id],
			MemberCount:  memberCounts[id],
			ProjectCount: projectCounts[id],
		})
	}
	return out, nil
}

// CreateInput is the body of a workspace creation.
type CreateInput struct {
	Name         string   `json:"name" validate:"notblank,max=120" label:"Name"`
	Slug         string   `json:"slug" validate:"omitempty,max=120" label:"Slug"`
	MemberEmails []string `json:"memberEmails" validate:"omitempty,max=50,dive,useremail" label:"Member emails"`
}

// Create makes a workspace owned by the caller, with the caller's ADMIN
// membership in the same transaction, then invites MemberEmails.
func (s *Service) Create(ctx context.Context, callerID primitive.ObjectID, in CreateInput) (models.Workspace, error) {
	name := htmlsanitize.PlainText(in.Name)
	if name == "" {
		return models.Workspace{}, apperr.BadRequest("Name is required.")
	}
	slug := normalize.SlugFor(name, in.Slug)

	var ws models.Workspace
	err := txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		var err error
		ws, err = s.workspaces.Create(ctx, models.Workspace{Name: name, Slug: slug, OwnerID: callerID})
		if err != nil {
			return err
		}
		_, err = s.members.Add(ctx, ws.ID, callerID, models.RoleAdmin)
		return err
	})
	if errors.Is(err, workspacestore.ErrDuplicateSlug) {
		return models.Workspace{}, apperr.Conflict("A workspace with the slug %q already exists.", slug)
	}
	if err != nil {
		return models.Workspace{}, apperr.Wrap("workspaces.Create", err)
	}

	s.logger.Info("workspace created",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("slug", ws.Slug),
		zap.String("owner_id", callerID.Hex()))
	s.audit.WorkspaceCreated(ctx, callerID, ws)

	if len(in.MemberEmails) > 0 {
		n, err := s.invitations.Send(ctx, ws, callerID, in.MemberEmails)
		if err != nil {
			// the workspace exists either way; a failed invite is not fatal
			s.logger.Warn("initial invites failed", zap.String("workspace_id", ws.ID.Hex()), zap.Error(err))
		}
		s.audit.MembersInvited(ctx, callerID, ws.ID, n)
	}
	return ws, nil
}

// Get returns the workspace to any member.
func (s *Service) Get(ctx context.Context, callerID, workspaceID primitive.ObjectID) (models.Workspace, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return models.Workspace{}, err
	}
	return s.load(ctx, workspaceID)
}

func (s *Service) load(ctx context.Context, workspaceID primitive.ObjectID) (models.Workspace, error) {
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if errors.Is(err, workspacestore.ErrNotFound) {
		return models.Workspace{}, apperr.NotFound("Workspace not found.")
	}
	if err != nil {
		return models.Workspace{}, apperr.Internal("workspaces.load", err)
	}
	return ws, nil
}

// Owner returns the owner's id to any member.
func (s *Service) Owner(ctx context.Context, callerID, workspaceID primitive.ObjectID) (primitive.ObjectID, error) {
	ws, err := s.Get(ctx, callerID, workspaceID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return ws.OwnerID, nil
}

// Rename sets a new non-blank name. Admin only.
func (s *Service) Rename(ctx context.Context, callerID, workspaceID primitive.ObjectID, name string) (models.Workspace, error) {
	if _, err := s.authority.RequireManage(ctx, callerID, workspaceID); err != nil {
		return models.Workspace{}, err
	}
	name = htmlsanitize.PlainText(name)
	if name == "" {
		return models.Workspace{}, apperr.BadRequest("Name is required.")
	}
	ws, err := s.workspaces.Rename(ctx, workspaceID, name)
	if errors.Is(err, workspacestore.ErrNotFound) {
		return models.Workspace{}, apperr.NotFound("Workspace not found.")
	}
	if err != nil {
		return models.Workspace{}, apperr.Internal("workspaces.Rename", err)
	}
	s.audit.WorkspaceRenamed(ctx, callerID, ws)
	return ws, nil
}

// Delete removes the workspace with its memberships, projects, work items
// and notifications in one transaction. Any admin may delete.
func (s *Service) Delete(ctx context.Context, callerID, workspaceID primitive.ObjectID) error {
	if _, err := s.authority.RequireManage(ctx, callerID, workspaceID); err != nil {
		return err
	}
	if _, err := s.load(ctx, workspaceID); err != nil {
		return err
	}

	var items, projects, members, notes int64
	err := txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		var err error
		if items, err = s.items.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		if projects, err = s.projects.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		if members, err = s.members.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		if notes, err = s.notes.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		if _, err = s.events.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		_, err = s.workspaces.Delete(ctx, workspaceID)
		return err
	})
	if err != nil {
		return apperr.Wrap("workspaces.Delete", err)
	}

	s.logger.Info("workspace deleted",
		zap.String("workspace_id", workspaceID.Hex()),
		zap.String("actor_id", callerID.Hex()),
		zap.Int64("work_items", items),
		zap.Int64("projects", projects),
		zap.Int64("memberships", members),
		zap.Int64("notifications", notes))
	return nil
}

// Me describes the caller inside the workspace.
func (s *Service) Me(ctx context.Context, callerID, workspaceID primitive.ObjectID) (Person, error) {
	role, err := s.authority.RequireMember(ctx, callerID, workspaceID)
	if err != nil {
		return Person{}, err
	}
	u, err := s.users.GetByID(ctx, callerID)
	if errors.Is(err, userstore.ErrNotFound) {
		return Person{}, apperr.Unauthenticated("Your account no longer exists.")
	}
	if err != nil {
		return Person{}, apperr.Internal("workspaces.Me", err)
	}
	return personOf(u, role), nil
}

// Members lists the workspace's members in join order. Memberships whose
// user has vanished are skipped.
func (s *Service) Members(ctx context.Context, callerID, workspaceID primitive.ObjectID) ([]Person, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	ms, err := s.members.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("workspaces.Members", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("workspaces.Members", err)
	}

	out := make([]Person, 0, len(ms))
	for _, m := range ms {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		out = append(out, personOf(u, m.Role))
	}
	return out, nil
}

// Invite is the admin-only invite endpoint.
func (s *Service) Invite(ctx context.Context, callerID, workspaceID primitive.ObjectID, emails []string) (int, error) {
	n, err := s.invitations.Invite(ctx, callerID, workspaceID, emails)
	s.audit.MembersInvited(ctx, callerID, workspaceID, n)
	return n, err
}

// AuditTrail returns the workspace's recent administrative events, newest
// first. Admin only.
func (s *Service) AuditTrail(ctx context.Context, callerID, workspaceID primitive.ObjectID) ([]models.AuditEvent, error) {
	if _, err := s.authority.RequireManage(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByWorkspace(ctx, workspaceID, auditstore.MaxList)
	if err != nil {
		return nil, apperr.Internal("workspaces.AuditTrail", err)
	}
	return events, nil
}

// subject gathers everything memberpolicy needs. It runs inside the
// transaction that performs the write.
func (s *Service) subject(ctx context.Context, callerID, targetID, workspaceID primitive.ObjectID) (memberpolicy.Subject, error) {
	sub := memberpolicy.Subject{CallerID: callerID, TargetID: targetID}

	role, ok, err := s.authority.RoleOf(ctx, callerID, workspaceID)
	if err != nil {
		return sub, err
	}
	sub.CallerIsMember = ok
	sub.CallerCanManage = ok && s.authority.CanManageWorkspace(role)

	if targetID != callerID {
		if sub.TargetIsMember, err = s.members.Exists(ctx, workspaceID, targetID); err != nil {
			return sub, err
		}
	} else {
		sub.TargetIsMember = ok
	}

	if ok {
		ws, err := s.workspaces.GetByID(ctx, workspaceID)
		if err != nil && !errors.Is(err, workspacestore.ErrNotFound) {
			return sub, err
		}
		sub.OwnerID = ws.OwnerID
	}
	return sub, nil
}

// ChangeRole sets targetID's role. The check and the write share one
// transaction so a concurrent demotion of the caller is respected.
func (s *Service) ChangeRole(ctx context.Context, callerID, workspaceID, targetID primitive.ObjectID, requested string) (models.Role, error) {
	var role models.Role
	err := txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		sub, err := s.subject(ctx, callerID, targetID, workspaceID)
		if err != nil {
			return err
		}
		if role, err = memberpolicy.CheckRoleChange(sub, requested); err != nil {
			return err
		}
		return s.members.SetRole(ctx, workspaceID, targetID, role)
	})
	if errors.Is(err, membershipstore.ErrNotFound) {
		return "", apperr.NotFound("That user is not a member of this workspace.")
	}
	if err != nil {
		return "", apperr.Wrap("workspaces.ChangeRole", err)
	}
	s.logger.Info("member role changed",
		zap.String("workspace_id", workspaceID.Hex()),
		zap.String("actor_id", callerID.Hex()),
		zap.String("target_id", targetID.Hex()),
		zap.String("role", string(role)))
	s.audit.RoleChanged(ctx, callerID, workspaceID, targetID, role)
	return role, nil
}

// RemoveMember removes targetID from the workspace.
func (s *Service) RemoveMember(ctx context.Context, callerID, workspaceID, targetID primitive.ObjectID) error {
	err := txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		sub, err := s.subject(ctx, callerID, targetID, workspaceID)
		if err != nil {
			return err
		}
		if err := memberpolicy.CheckRemove(sub); err != nil {
			return err
		}
		_, err = s.members.Remove(ctx, workspaceID, targetID)
		return err
	})
	if err != nil {
		return apperr.Wrap("workspaces.RemoveMember", err)
	}
	s.logger.Info("member removed",
		zap.String("workspace_id", workspaceID.Hex()),
		zap.String("actor_id", callerID.Hex()),
		zap.String("target_id", targetID.Hex()))
	s.audit.MemberRemoved(ctx, callerID, workspaceID, targetID)
	return nil
}

// Leave removes the caller's own membership. The owner cannot leave.
func (s *Service) Leave(ctx context.Context, callerID, workspaceID primitive.ObjectID) error {
	err := txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		sub, err := s.subject(ctx, callerID, callerID, workspaceID)
		if err != nil {
			return err
		}
		if err := memberpolicy.CheckLeave(sub); err != nil {
			return err
		}
		_, err = s.members.Remove(ctx, workspaceID, callerID)
		return err
	})
	if err != nil {
		return apperr.Wrap("workspaces.Leave", err)
	}
	s.audit.MemberLeft(ctx, callerID, workspaceID)
	return nil
}

// SearchUsers finds users by email substring. A query shorter than two
// characters yields an empty list. The caller is never included.
func (s *Service) SearchUsers(ctx context.Context, callerID primitive.ObjectID, query string) ([]Person, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < minSearchLen {
		return []Person{}, nil
	}
	return s.search(ctx, q, []primitive.ObjectID{callerID})
}

// SearchInvitable is SearchUsers restricted to people who are not yet
// members of the workspace. The caller must be a member.
func (s *Service) SearchInvitable(ctx context.Context, callerID, workspaceID primitive.ObjectID, query string) ([]Person, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	q := strings.TrimSpace(query)
	if len([]rune(q)) < minSearchLen {
		return []Person{}, nil
	}
	ms, err := s.members.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("workspaces.SearchInvitable", err)
	}
	exclude := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		exclude = append(exclude, m.UserID)
	}
	return s.search(ctx, q, exclude)
}

func (s *Service) search(ctx context.Context, q string, exclude []primitive.ObjectID) ([]Person, error) {
	users, err := s.users.SearchByEmail(ctx, q, exclude, SearchLimit)
	if err != nil {
		return nil, apperr.Internal("workspaces.search", err)
	}
	out := make([]Person, 0, len(users))
	for _, u := range users {
		out = append(out, personOf(u, ""))
	}
	return out, nil
}
