// Package projects implements project CRUD inside a workspace.
package projects

import (
	"context"
	"errors"

	projectstore "github.com/dalemusser/planhub/internal/app/store/projects"
	workitemstore "github.com/dalemusser/planhub/internal/app/store/workitems"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/hierarchy"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Service struct {
	db        *mongo.Database
	projects  *projectstore.Store
	items     *workitemstore.Store
	authority *authz.Authority
	hier      *hierarchy.Validator
	logger    *zap.Logger
}

func New(db *mongo.Database, authority *authz.Authority, logger *zap.Logger) *Service {
	projects := projectstore.New(db)
	items := workitemstore.New(db)
	return &Service{
		db:        db,
		projects:  projects,
		items:     items,
		authority: authority,
		hier:      hierarchy.New(projects, items, IsNotFound),
		logger:    logger,
	}
}

// IsNotFound matches the not-found sentinels of the project and work item
// stores.
func IsNotFound(err error) bool {
	return errors.Is(err, projectstore.ErrNotFound) || errors.Is(err, workitemstore.ErrNotFound)
}

// List returns the workspace's projects, oldest first.
func (s *Service) List(ctx context.Context, callerID, workspaceID primitive.ObjectID) ([]models.Project, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	ps, err := s.projects.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("projects.List", err)
	}
	return ps, nil
}

// Get returns one project to any member.
func (s *Service) Get(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID) (models.Project, error) {
	if _, err := s.authority.RequireMember(ctx, callerID, workspaceID); err != nil {
		return models.Project{}, err
	}
	return s.hier.ProjectBelongsToWorkspace(ctx, projectID, workspaceID)
}

// ForMember loads a project by id alone and checks that the caller belongs
// to its workspace. Realtime subscriptions use it since their path carries
// no workspace id.
func (s *Service) ForMember(ctx context.Context, callerID, projectID primitive.ObjectID) (models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, projectstore.ErrNotFound) {
		return models.Project{}, apperr.NotFound("Project not found.")
	}
	if err != nil {
		return models.Project{}, apperr.Internal("projects.ForMember", err)
	}
	if _, err := s.authority.RequireMember(ctx, callerID, p.WorkspaceID); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// CreateInput is the body of a project creation.
type CreateInput struct {
	Name        string `json:"name" validate:"notblank,max=200" label:"Name"`
	Description string `json:"description" validate:"max=10000" label:"Description"`
}

// Create adds a project. Admins and members may create; viewers may not.
func (s *Service) Create(ctx context.Context, callerID, workspaceID primitive.ObjectID, in CreateInput) (models.Project, error) {
	if _, err := s.authority.RequireAction(ctx, callerID, workspaceID, authz.ActProjectCreate); err != nil {
		return models.Project{}, err
	}
	name := htmlsanitize.PlainText(in.Name)
	if name == "" {
		return models.Project{}, apperr.BadRequest("Name is required.")
	}
	p, err := s.projects.Create(ctx, models.Project{
		Name:        name,
		Description: htmlsanitize.Sanitize(in.Description),
		WorkspaceID: workspaceID,
		CreatorID:   callerID,
	})
	if err != nil {
		return models.Project{}, apperr.Internal("projects.Create", err)
	}
	s.logger.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("workspace_id", workspaceID.Hex()),
		zap.String("creator_id", callerID.Hex()))
	return p, nil
}

// PatchInput holds optional new values; nil means unchanged.
type PatchInput struct {
	Name        *string `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=10000" label:"Description"`
}

// editable runs membership, hierarchy and edit-permission checks in that
// order.
func (s *Service) editable(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID) (models.Project, error) {
	role, err := s.authority.RequireMember(ctx, callerID, workspaceID)
	if err != nil {
		return models.Project{}, err
	}
	p, err := s.hier.ProjectBelongsToWorkspace(ctx, projectID, workspaceID)
	if err != nil {
		return models.Project{}, err
	}
	if !s.authority.CanEditProject(callerID, p, role) {
		return models.Project{}, apperr.Forbidden("Only admins or the project creator can change this project.")
	}
	return p, nil
}

// Patch updates name and/or description. Admin or creator only.
func (s *Service) Patch(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID, in PatchInput) (models.Project, error) {
	p, err := s.editable(ctx, callerID, workspaceID, projectID)
	if err != nil {
		return models.Project{}, err
	}

	var upd projectstore.Update
	if in.Name != nil {
		name := htmlsanitize.PlainText(*in.Name)
		if name == "" {
			return models.Project{}, apperr.BadRequest("Name cannot be blank.")
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.Sanitize(*in.Description)
		upd.Description = &desc
	}
	if upd.Name == nil && upd.Description == nil {
		return p, nil
	}

	out, err := s.projects.Update(ctx, p.ID, upd)
	if errors.Is(err, projectstore.ErrNotFound) {
		return models.Project{}, apperr.NotFound("Project not found.")
	}
	if err != nil {
		return models.Project{}, apperr.Internal("projects.Patch", err)
	}
	return out, nil
}

// Delete removes the project and its work items in one transaction.
func (s *Service) Delete(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID) error {
	p, err := s.editable(ctx, callerID, workspaceID, projectID)
	if err != nil {
		return err
	}
	var items int64
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		var err error
		if items, err = s.items.DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		_, err = s.projects.Delete(ctx, p.ID)
		return err
	})
	if err != nil {
		return apperr.Wrap("projects.Delete", err)
	}
	s.logger.Info("project deleted",
		zap.String("project_id", p.ID.Hex()),
		zap.String("actor_id", callerID.Hex()),
		zap.Int64("work_items", items))
	return nil
}

// IsCreator reports whether the caller created the project.
func (s *Service) IsCreator(ctx context.Context, callerID, workspaceID, projectID primitive.ObjectID) (bool, error) {
	p, err := s.Get(ctx, callerID, workspaceID, projectID)
	if err != nil {
		return false, err
	}
	return p.CreatorID == callerID, nil
}
