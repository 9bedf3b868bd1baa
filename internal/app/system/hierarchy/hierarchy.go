// Package hierarchy checks that ids taken from a request path really nest:
// the project lives in the workspace, the work item lives in the project.
// Callers run it after the membership check so outsiders only ever see
// Forbidden.
package hierarchy

import (
	"context"
	"errors"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is what sources return for a missing entity.
var ErrNotFound = errors.New("not found")

type ProjectSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
}

type WorkItemSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.WorkItem, error)
}

// Validator resolves entities through the stores. isNotFound tells it which
// store errors mean "missing".
type Validator struct {
	projects   ProjectSource
	items      WorkItemSource
	isNotFound func(error) bool
}

func New(projects ProjectSource, items WorkItemSource, isNotFound func(error) bool) *Validator {
	if isNotFound == nil {
		isNotFound = func(err error) bool { return errors.Is(err, ErrNotFound) }
	}
	return &Validator{projects: projects, items: items, isNotFound: isNotFound}
}

// ProjectBelongsToWorkspace returns the project when it is in workspaceID.
func (v *Validator) ProjectBelongsToWorkspace(ctx context.Context, projectID, workspaceID primitive.ObjectID) (models.Project, error) {
	p, err := v.projects.GetByID(ctx, projectID)
	if err != nil {
		if v.isNotFound(err) {
			return models.Project{}, apperr.NotFound("Project not found.")
		}
		return models.Project{}, apperr.Internal("hierarchy.project", err)
	}
	if p.WorkspaceID != workspaceID {
		return models.Project{}, apperr.BadHierarchy("Project does not belong to this workspace.")
	}
	return p, nil
}

// WorkItemBelongsTo returns the project and item when the full path holds.
func (v *Validator) WorkItemBelongsTo(ctx context.Context, workItemID, projectID, workspaceID primitive.ObjectID) (models.Project, models.WorkItem, error) {
	p, err := v.ProjectBelongsToWorkspace(ctx, projectID, workspaceID)
	if err != nil {
		return models.Project{}, models.WorkItem{}, err
	}
	wi, err := v.items.GetByID(ctx, workItemID)
	if err != nil {
		if v.isNotFound(err) {
			return models.Project{}, models.WorkItem{}, apperr.NotFound("Work item not found.")
		}
		return models.Project{}, models.WorkItem{}, apperr.Internal("hierarchy.workitem", err)
	}
	if wi.ProjectID != projectID {
		return models.Project{}, models.WorkItem{}, apperr.BadHierarchy("Work item does not belong to this project.")
	}
	return p, wi, nil
}
