// Package invitations runs the workspace invite workflow and the
// notification inbox.
//
// An invite is an INVITE notification addressed to an existing user. It
// turns into a MEMBER membership when the recipient accepts it. Assignment
// alerts are UPDATE notifications and are never de-duplicated.
package invitations

import (
	"context"
	"errors"
	"time"

	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/planhub/internal/app/store/notifications"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/planhub/internal/app/store/workspaces"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/metrics"
	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	inviteTitle     = "Workspace Invitation"
	assignmentTitle = "New Task Assigned"
)

type Service struct {
	db         *mongo.Database
	users      *userstore.Store
	workspaces *workspacestore.Store
	members    *membershipstore.Store
	notes      *notificationstore.Store
	authority  *authz.Authority
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New wires the service to db. m may be nil.
func New(db *mongo.Database, authority *authz.Authority, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		db:         db,
		users:      userstore.New(db),
		workspaces: workspacestore.New(db),
		members:    membershipstore.New(db),
		notes:      notificationstore.New(db),
		authority:  authority,
		metrics:    m,
		logger:     logger,
	}
}

// Invite sends invites for workspaceID on behalf of senderID, who must be a
// workspace admin. It returns how many invites were created.
func (s *Service) Invite(ctx context.Context, senderID, workspaceID primitive.ObjectID, emails []string) (int, error) {
	if _, err := s.authority.RequireManage(ctx, senderID, workspaceID); err != nil {
		return 0, err
	}
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if errors.Is(err, workspacestore.ErrNotFound) {
		return 0, apperr.NotFound("Workspace not found.")
	}
	if err != nil {
		return 0, apperr.Internal("invitations.Invite", err)
	}
	return s.Send(ctx, ws, senderID, emails)
}

// Send creates the invites without checking the sender's role; callers do
// that. Emails that are the sender's own, unknown, already members or
// already invited are skipped silently.
func (s *Service) Send(ctx context.Context, ws models.Workspace, senderID primitive.ObjectID, emails []string) (int, error) {
	created := 0
	seen := make(map[string]bool, len(emails))
	for _, raw := range emails {
		email := normalize.Email(raw)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		ok, err := s.sendOne(ctx, ws, senderID, email)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	s.metrics.InvitesCreated(created)
	if created > 0 {
		s.logger.Info("invites sent",
			zap.String("workspace_id", ws.ID.Hex()),
			zap.String("sender_id", senderID.Hex()),
			zap.Int("count", created))
	}
	return created, nil
}

func (s *Service) sendOne(ctx context.Context, ws models.Workspace, senderID primitive.ObjectID, email string) (bool, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("invitations.lookupUser", err)
	}
	if u.ID == senderID {
		return false, nil
	}

	member, err := s.members.Exists(ctx, ws.ID, u.ID)
	if err != nil {
		return false, apperr.Internal("invitations.memberExists", err)
	}
	if member {
		return false, nil
	}

	pending, err := s.notes.PendingInviteExists(ctx, u.ID, ws.ID)
	if err != nil {
		return false, apperr.Internal("invitations.pendingInvite", err)
	}
	if pending {
		return false, nil
	}

	_, err = s.notes.Create(ctx, models.Notification{
		RecipientID: u.ID,
		Type:        models.NotificationInvite,
		WorkspaceID: ws.ID,
		Title:       inviteTitle,
		Subtitle:    "You have been invited to join " + ws.Name,
	})
	if errors.Is(err, notificationstore.ErrDuplicateInvite) {
		// a concurrent Send won the race
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("invitations.createInvite", err)
	}
	return true, nil
}

// loadOwned fetches a notification and checks that callerID received it.
func (s *Service) loadOwned(ctx context.Context, callerID, notificationID primitive.ObjectID) (models.Notification, error) {
	n, err := s.notes.GetByID(ctx, notificationID)
	if errors.Is(err, notificationstore.ErrNotFound) {
		return models.Notification{}, apperr.NotFound("Notification not found.")
	}
	if err != nil {
		return models.Notification{}, apperr.Internal("invitations.getNotification", err)
	}
	if n.RecipientID != callerID {
		return models.Notification{}, apperr.Forbidden("This notification belongs to another user.")
	}
	return n, nil
}

func (s *Service) loadInvite(ctx context.Context, callerID, notificationID primitive.ObjectID) (models.Notification, error) {
	n, err := s.loadOwned(ctx, callerID, notificationID)
	if err != nil {
		return n, err
	}
	if n.Type != models.NotificationInvite {
		return models.Notification{}, apperr.BadRequest("Only invitations can be accepted or rejected.")
	}
	return n, nil
}

// errWorkspaceGone aborts an Accept whose workspace vanished mid-way.
var errWorkspaceGone = errors.New("workspace gone")

// Accept turns an invite into a MEMBER membership and deletes it, in one
// transaction. The delete comes first and must remove exactly one document,
// so racing Accepts (or an Accept racing a Reject) yield one membership at
// most. Accepting when already a member just removes the invite.
func (s *Service) Accept(ctx context.Context, callerID, notificationID primitive.ObjectID) (primitive.ObjectID, error) {
	n, err := s.loadInvite(ctx, callerID, notificationID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		deleted, err := s.notes.Delete(ctx, n.ID)
		if err != nil {
			return err
		}
		if deleted != 1 {
			return apperr.NotFound("Notification not found.")
		}
		if _, err := s.workspaces.GetByID(ctx, n.WorkspaceID); err != nil {
			if errors.Is(err, workspacestore.ErrNotFound) {
				return errWorkspaceGone
			}
			return err
		}
		if _, err := s.members.Add(ctx, n.WorkspaceID, callerID, models.RoleMember); err != nil &&
			!errors.Is(err, membershipstore.ErrDuplicateMembership) {
			return err
		}
		return nil
	})
	if errors.Is(err, errWorkspaceGone) {
		// the transaction rolled the delete back; drop the stale invite
		if _, derr := s.notes.Delete(ctx, n.ID); derr != nil {
			s.logger.Warn("delete stale invite failed",
				zap.String("notification_id", n.ID.Hex()),
				zap.Error(derr))
		}
		return primitive.NilObjectID, apperr.NotFound("Workspace no longer exists.")
	}
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap("invitations.Accept", err)
	}

	s.logger.Info("invite accepted",
		zap.String("workspace_id", n.WorkspaceID.Hex()),
		zap.String("user_id", callerID.Hex()))
	return n.WorkspaceID, nil
}

// Reject deletes an invite without joining.
func (s *Service) Reject(ctx context.Context, callerID, notificationID primitive.ObjectID) error {
	n, err := s.loadInvite(ctx, callerID, notificationID)
	if err != nil {
		return err
	}
	deleted, err := s.notes.Delete(ctx, n.ID)
	if err != nil {
		return apperr.Internal("invitations.Reject", err)
	}
	if deleted != 1 {
		return apperr.NotFound("Notification not found.")
	}
	return nil
}

// MarkRead clears the unread flag on any notification the caller owns.
func (s *Service) MarkRead(ctx context.Context, callerID, notificationID primitive.ObjectID) error {
	n, err := s.loadOwned(ctx, callerID, notificationID)
	if err != nil {
		return err
	}
	if err := s.notes.MarkRead(ctx, n.ID); err != nil {
		if errors.Is(err, notificationstore.ErrNotFound) {
			return apperr.NotFound("Notification not found.")
		}
		return apperr.Internal("invitations.MarkRead", err)
	}
	return nil
}

// NotifyAssignment tells the assignee about item. Nothing is sent when the
// item is unassigned or the actor assigned themselves.
func (s *Service) NotifyAssignment(ctx context.Context, actorID primitive.ObjectID, item models.WorkItem, project models.Project) error {
	if item.AssigneeID == nil || *item.AssigneeID == actorID {
		return nil
	}
	ref := item.ID
	_, err := s.notes.Create(ctx, models.Notification{
		RecipientID: *item.AssigneeID,
		Type:        models.NotificationUpdate,
		WorkspaceID: project.WorkspaceID,
		ProjectName: project.Name,
		ReferenceID: &ref,
		Title:       assignmentTitle,
		Subtitle:    "You have been assigned to: " + item.Title,
	})
	if err != nil {
		return apperr.Internal("invitations.NotifyAssignment", err)
	}
	return nil
}

// InboxItem is one row of the notification inbox.
type InboxItem struct {
	ID            primitive.ObjectID `json:"id"`
	Type          string             `json:"type"`
	WorkspaceName string             `json:"workspaceName"`
	ProjectName   string             `json:"projectName,omitempty"`
	Subtitle      string             `json:"subtitle"`
	Time          string             `json:"time"`
	IsUnread      bool               `json:"isUnread"`
	ReferenceID   string             `json:"referenceId,omitempty"`
}

// Inbox lists the caller's notifications, newest first. Invites carry the
// workspace id as their reference; updates carry the work item id.
func (s *Service) Inbox(ctx context.Context, callerID primitive.ObjectID) ([]InboxItem, error) {
	notes, err := s.notes.ListByRecipient(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("invitations.Inbox", err)
	}

	wsIDs := make([]primitive.ObjectID, 0, len(notes))
	for _, n := range notes {
		wsIDs = append(wsIDs, n.WorkspaceID)
	}
	workspaces, err := s.workspaces.GetByIDs(ctx, wsIDs)
	if err != nil {
		return nil, apperr.Internal("invitations.Inbox", err)
	}
	names := make(map[primitive.ObjectID]string, len(workspaces))
	for _, ws := range workspaces {
		names[ws.ID] = ws.Name
	}

	out := make([]InboxItem, 0, len(notes))
	for _, n := range notes {
		item := InboxItem{
			ID:            n.ID,
			WorkspaceName: names[n.WorkspaceID],
			ProjectName:   n.ProjectName,
			Subtitle:      n.Subtitle,
			Time:          n.CreatedAt.UTC().Format(time.RFC3339),
			IsUnread:      n.IsUnread,
		}
		switch n.Type {
		case models.NotificationInvite:
			item.Type = "invite"
			item.ReferenceID = n.WorkspaceID.Hex()
		default:
			item.Type = "update"
			if n.ReferenceID != nil {
				item.ReferenceID = n.ReferenceID.Hex()
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// HasUnread reports whether the caller has any unread notification.
func (s *Service) HasUnread(ctx context.Context, callerID primitive.ObjectID) (bool, error) {
	ok, err := s.notes.HasUnread(ctx, callerID)
	if err != nil {
		return false, apperr.Internal("invitations.HasUnread", err)
	}
	return ok, nil
}
