// Package workitems implements the work item board: ordered listing,
// creation at the tail, edits, moves between neighbours and deletion.
//
// Every successful mutation publishes a realtime event on the project's
// topic. Assigning someone other than yourself sends them an UPDATE
// notification.
package workitems

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/planhub/internal/app/services/invitations"
	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	projectstore "github.com/dalemusser/planhub/internal/app/store/projects"
	workitemstore "github.com/dalemusser/planhub/internal/app/store/workitems"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/hierarchy"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/metrics"
	"github.com/dalemusser/planhub/internal/app/system/position"
	"github.com/dalemusser/planhub/internal/app/system/realtime"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxPositionAttempts bounds the retries when a concurrent writer takes the
// position we computed.
const MaxPositionAttempts = 5

type Service struct {
	db          *mongo.Database
	items       *workitemstore.Store
	members     *membershipstore.Store
	authority   *authz.Authority
	hier        *hierarchy.Validator
	invitations *invitations.Service
	publisher   realtime.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// New wires the service. pub may be nil (events are dropped) and so may m.
func New(db *mongo.Database, authority *authz.Authority, inv *invitations.Service, pub realtime.Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	if pub == nil {
		pub = realtime.Nop{}
	}
	projects := projectstore.New(db)
	items := workitemstore.New(db)
	return &Service{
		db:        db,
		items:     items,
		members:   membershipstore.New(db),
		authority: authority,
		hier: hierarchy.New(projects, items, func(err error) bool {
			return errors.Is(err, projectstore.ErrNotFound) || errors.Is(err, workitemstore.ErrNotFound)
		}),
		invitations: inv,
		publisher:   pub,
		metrics:     m,
		logger:      logger,
	}
}

// List returns the project's items ordered by position.
func (s *Service) List(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID) ([]models.WorkItem, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.hier.ProjectBelongsToWorkspace(ctx, projectID, workspaceID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal("workitems.List", err)
	}
	return items, nil
}

// Get returns one item to any member.
func (s *Service) Get(ctx context.Context, callerID, workspaceID, projectID, itemID primitive.ObjectID) (models.WorkItem, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return models.WorkItem{}, err
	}
	_, wi, err := s.hier.WorkItemBelongsTo(ctx, itemID, projectID, workspaceID)
	return wi, err
}

// CreateInput is the body of a work item creation. Empty enums take their
// defaults.
type CreateInput struct {
	Title       string              `json:"title" validate:"notblank,max=300" label:"Title"`
	Description string              `json:"description" validate:"max=20000" label:"Description"`
	Status      string              `json:"status" validate:"omitempty,wistatus" label:"Status"`
	Priority    string              `json:"priority" validate:"omitempty,wipriority" label:"Priority"`
	Type        string              `json:"type" validate:"omitempty,witype" label:"Type"`
	AssigneeID  *primitive.ObjectID `json:"assigneeId"`
}

func parseEnums(status, priority, typ string, wi *models.WorkItem) error {
	if status != "" {
		st := models.WorkItemStatus(strings.ToUpper(strings.TrimSpace(status)))
		if !st.Valid() {
			return apperr.BadRequest("Invalid status %q.", status)
		}
		wi.Status = st
	}
	if priority != "" {
		pr := models.WorkItemPriority(strings.ToUpper(strings.TrimSpace(priority)))
		if !pr.Valid() {
			return apperr.BadRequest("Invalid priority %q.", priority)
		}
		wi.Priority = pr
	}
	if typ != "" {
		ty := models.WorkItemType(strings.ToUpper(strings.TrimSpace(typ)))
		if !ty.Valid() {
			return apperr.BadRequest("Invalid type %q.", typ)
		}
		wi.Type = ty
	}
	return nil
}

func (s *Service) requireAssignable(ctx context.Context, workspaceID, assigneeID primitive.ObjectID) error {
	ok, err := s.members.Exists(ctx, workspaceID, assigneeID)
	if err != nil {
		return apperr.Internal("workitems.assignee", err)
	}
	if !ok {
		return apperr.BadRequest("The assignee must be a member of this workspace.")
	}
	return nil
}

// Create appends a new item to the tail of the project.
func (s *Service) Create(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID, in CreateInput) (models.WorkItem, error) {
	if _, err := s.authority.RequireContentWrite(ctx, callerID, workspaceID); err != nil {
		return models.WorkItem{}, err
	}
	project, err := s.hier.ProjectBelongsToWorkspace(ctx, projectID, workspaceID)
	if err != nil {
		return models.WorkItem{}, err
	}

	wi := models.WorkItem{
		Title:       htmlsanitize.PlainText(in.Title),
		Description: htmlsanitize.Sanitize(in.Description),
		Status:      models.StatusBacklog,
		Priority:    models.PriorityMedium,
		Type:        models.TypeTask,
		ProjectID:   project.ID,
		WorkspaceID: project.WorkspaceID,
		CreatorID:   callerID,
		AssigneeID:  in.AssigneeID,
	}
	if wi.Title == "" {
		return models.WorkItem{}, apperr.BadRequest("Title is required.")
	}
	if err := parseEnums(in.Status, in.Priority, in.Type, &wi); err != nil {
		return models.WorkItem{}, err
	}
	if wi.AssigneeID != nil {
		if err := s.requireAssignable(ctx, workspaceID, *wi.AssigneeID); err != nil {
			return models.WorkItem{}, err
		}
	}

	var created models.WorkItem
	err = s.withPositionRetry(ctx, "workitems.Create", func(ctx context.Context) error {
		max, hasAny, err := s.items.MaxPosition(ctx, project.ID)
		if err != nil {
			return err
		}
		wi.Position = position.Next(max, hasAny)
		created, err = s.items.Insert(ctx, wi)
		return err
	})
	if err != nil {
		return models.WorkItem{}, err
	}

	s.metrics.WorkItemCreated()
	s.publish(created.ProjectID, realtime.Created, &created)
	s.notify(ctx, callerID, created, project)
	return created, nil
}

// withPositionRetry runs fn in a transaction and retries it when the
// (project_id, position) index rejects the write.
func (s *Service) withPositionRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= MaxPositionAttempts; attempt++ {
		err = txn.Run(ctx, s.db, s.logger, fn)
		if !errors.Is(err, workitemstore.ErrDuplicatePosition) {
			break
		}
		s.logger.Debug("position taken, retrying", zap.String("op", op), zap.Int("attempt", attempt))
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workitemstore.ErrDuplicatePosition):
		return apperr.Conflict("The board changed too quickly; please retry.")
	case errors.Is(err, workitemstore.ErrNotFound):
		return apperr.NotFound("Work item not found.")
	default:
		return apperr.Wrap(op, err)
	}
}

// PatchInput holds optional changes. AssigneeID distinguishes "absent" from
// null, which clears the assignee.
type PatchInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=300" label:"Title"`
	Description *string    `json:"description" validate:"omitempty,max=20000" label:"Description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	Type        *string    `json:"type"`
	AssigneeID  OptionalID `json:"assigneeId"`
	Position    *float64   `json:"position"`
}

// Patch applies in to the item. A changed non-nil assignee is notified.
func (s *Service) Patch(ctx context.Context, callerID, workspaceID, projectID, itemID primitive.ObjectID, in PatchInput) (models.WorkItem, error) {
	if _, err := s.authority.RequireContentWrite(ctx, callerID, workspaceID); err != nil {
		return models.WorkItem{}, err
	}
	project, wi, err := s.hier.WorkItemBelongsTo(ctx, itemID, projectID, workspaceID)
	if err != nil {
		return models.WorkItem{}, err
	}
	prevAssignee := wi.AssigneeID

	var ch workitemstore.Changes
	if in.Title != nil {
		title := htmlsanitize.PlainText(*in.Title)
		if title == "" {
			return models.WorkItem{}, apperr.BadRequest("Title cannot be blank.")
		}
		ch.Title = &title
	}
	if in.Description != nil {
		desc := htmlsanitize.Sanitize(*in.Description)
		ch.Description = &desc
	}
	var status, priority, typ string
	if in.Status != nil {
		if status = *in.Status; status == "" {
			return models.WorkItem{}, apperr.BadRequest("Status cannot be empty.")
		}
	}
	if in.Priority != nil {
		if priority = *in.Priority; priority == "" {
			return models.WorkItem{}, apperr.BadRequest("Priority cannot be empty.")
		}
	}
	if in.Type != nil {
		if typ = *in.Type; typ == "" {
			return models.WorkItem{}, apperr.BadRequest("Type cannot be empty.")
		}
	}
	var parsed models.WorkItem
	if err := parseEnums(status, priority, typ, &parsed); err != nil {
		return models.WorkItem{}, err
	}
	if in.Status != nil {
		ch.Status = &parsed.Status
	}
	if in.Priority != nil {
		ch.Priority = &parsed.Priority
	}
	if in.Type != nil {
		ch.Type = &parsed.Type
	}
	if in.AssigneeID.Set {
		if in.AssigneeID.ID != nil {
			if err := s.requireAssignable(ctx, workspaceID, *in.AssigneeID.ID); err != nil {
				return models.WorkItem{}, err
			}
		}
		ch.SetAssignee = true
		ch.AssigneeID = in.AssigneeID.ID
	}
	ch.Position = in.Position

	saved, err := s.items.Update(ctx, wi.ID, ch)
	switch {
	case errors.Is(err, workitemstore.ErrDuplicatePosition):
		return models.WorkItem{}, apperr.Conflict("Another work item already holds that position.")
	case errors.Is(err, workitemstore.ErrNotFound):
		return models.WorkItem{}, apperr.NotFound("Work item not found.")
	case err != nil:
		return models.WorkItem{}, apperr.Internal("workitems.Patch", err)
	}

	s.publish(saved.ProjectID, realtime.Updated, &saved)
	if !sameID(prevAssignee, saved.AssigneeID) {
		s.notify(ctx, callerID, saved, project)
	}
	return saved, nil
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MoveInput places an item between two siblings. BeforeID is the sibling
// that ends up directly before the item, AfterID the one directly after.
// Give either, both (they must be adjacent) or neither (move to the end).
type MoveInput struct {
	BeforeID *primitive.ObjectID `json:"beforeId"`
	AfterID  *primitive.ObjectID `json:"afterId"`
}

// Move repositions the item. When the gap between the neighbours is used
// up, the project is renumbered first and the move is recomputed.
func (s *Service) Move(ctx context.Context, callerID, workspaceID, projectID, itemID primitive.ObjectID, in MoveInput) (models.WorkItem, error) {
	if _, err := s.authority.RequireContentWrite(ctx, callerID, workspaceID); err != nil {
		return models.WorkItem{}, err
	}
	if _, _, err := s.hier.WorkItemBelongsTo(ctx, itemID, projectID, workspaceID); err != nil {
		return models.WorkItem{}, err
	}
	if (in.BeforeID != nil && *in.BeforeID == itemID) || (in.AfterID != nil && *in.AfterID == itemID) {
		return models.WorkItem{}, apperr.BadRequest("An item cannot be moved relative to itself.")
	}

	var moved models.WorkItem
	err := s.withPositionRetry(ctx, "workitems.Move", func(ctx context.Context) error {
		for pass := 0; pass < 2; pass++ {
			all, err := s.items.ListByProject(ctx, projectID)
			if err != nil {
				return err
			}
			var self *models.WorkItem
			siblings := make([]models.WorkItem, 0, len(all))
			for i := range all {
				if all[i].ID == itemID {
					self = &all[i]
					continue
				}
				siblings = append(siblings, all[i])
			}
			if self == nil {
				return workitemstore.ErrNotFound
			}

			before, after, err := neighbours(siblings, in)
			if err != nil {
				return err
			}
			pos, ok := position.Between(before, after)
			if ok {
				moved, err = s.items.Update(ctx, self.ID, workitemstore.Changes{Position: &pos})
				return err
			}
			if pass > 0 {
				break
			}
			if err := s.rebalance(ctx, projectID, all); err != nil {
				return err
			}
		}
		return apperr.Internal("workitems.Move", errors.New("no gap after rebalance"))
	})
	if err != nil {
		return models.WorkItem{}, err
	}

	s.publish(moved.ProjectID, realtime.Updated, &moved)
	return moved, nil
}

// neighbours resolves MoveInput against the ordered siblings and returns
// the positions to place between. A nil result means an open end.
func neighbours(siblings []models.WorkItem, in MoveInput) (before, after *float64, err error) {
	index := func(id primitive.ObjectID) int {
		for i := range siblings {
			if siblings[i].ID == id {
				return i
			}
		}
		return -1
	}
	at := func(i int) *float64 {
		if i < 0 || i >= len(siblings) {
			return nil
		}
		p := siblings[i].Position
		return &p
	}

	switch {
	case in.BeforeID != nil && in.AfterID != nil:
		bi, ai := index(*in.BeforeID), index(*in.AfterID)
		if bi < 0 || ai < 0 {
			return nil, nil, apperr.BadRequest("Both neighbours must be items in this project.")
		}
		if ai != bi+1 {
			return nil, nil, apperr.BadRequest("The neighbours must be adjacent.")
		}
		return at(bi), at(ai), nil
	case in.BeforeID != nil:
		bi := index(*in.BeforeID)
		if bi < 0 {
			return nil, nil, apperr.BadRequest("beforeId is not an item in this project.")
		}
		return at(bi), at(bi + 1), nil
	case in.AfterID != nil:
		ai := index(*in.AfterID)
		if ai < 0 {
			return nil, nil, apperr.BadRequest("afterId is not an item in this project.")
		}
		return at(ai - 1), at(ai), nil
	default:
		return at(len(siblings) - 1), nil, nil
	}
}

// rebalance renumbers the project to Gap, 2*Gap, ... keeping the current
// order.
func (s *Service) rebalance(ctx context.Context, projectID primitive.ObjectID, ordered []models.WorkItem) error {
	ids := make([]primitive.ObjectID, len(ordered))
	for i, wi := range ordered {
		ids[i] = wi.ID
	}
	if err := s.items.Renumber(ctx, projectID, ids, position.Gap); err != nil {
		return err
	}
	s.metrics.Rebalanced()
	s.logger.Info("project positions rebalanced",
		zap.String("project_id", projectID.Hex()),
		zap.Int("items", len(ids)))
	return nil
}

// Delete removes one item.
func (s *Service) Delete(ctx context.Context, callerID, workspaceID, projectID, itemID primitive.ObjectID) error {
	if _, err := s.authority.RequireContentWrite(ctx, callerID, workspaceID); err != nil {
		return err
	}
	_, wi, err := s.hier.WorkItemBelongsTo(ctx, itemID, projectID, workspaceID)
	if err != nil {
		return err
	}
	n, err := s.items.Delete(ctx, wi.ID)
	if err != nil {
		return apperr.Internal("workitems.Delete", err)
	}
	if n == 0 {
		return apperr.NotFound("Work item not found.")
	}
	s.publish(wi.ProjectID, realtime.Deleted, nil, wi.ID)
	return nil
}

func (s *Service) publish(projectID primitive.ObjectID, typ realtime.EventType, wi *models.WorkItem, id ...primitive.ObjectID) {
	ev := realtime.Event{Type: typ, WorkItem: wi}
	switch {
	case wi != nil:
		ev.WorkItemID = wi.ID.Hex()
	case len(id) > 0:
		ev.WorkItemID = id[0].Hex()
	}
	s.publisher.Publish(realtime.ProjectTopic(projectID), ev)
}

// notify sends the assignment alert. The mutation has already committed, so
// a failure is logged and not returned.
func (s *Service) notify(ctx context.Context, actorID primitive.ObjectID, wi models.WorkItem, project models.Project) {
	if s.invitations == nil {
		return
	}
	if err := s.invitations.NotifyAssignment(ctx, actorID, wi, project); err != nil {
		s.logger.Warn("assignment notification failed",
			zap.String("work_item_id", wi.ID.Hex()),
			zap.Error(err))
	}
}
