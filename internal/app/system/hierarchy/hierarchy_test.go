package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type projects map[primitive.ObjectID]models.Project

func (p projects) GetByID(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	if v, ok := p[id]; ok {
		return v, nil
	}
	return models.Project{}, ErrNotFound
}

type items map[primitive.ObjectID]models.WorkItem

func (i items) GetByID(_ context.Context, id primitive.ObjectID) (models.WorkItem, error) {
	if v, ok := i[id]; ok {
		return v, nil
	}
	return models.WorkItem{}, ErrNotFound
}

type failing struct{}

func (failing) GetByID(context.Context, primitive.ObjectID) (models.Project, error) {
	return models.Project{}, errors.New("db down")
}

func TestWorkItemBelongsTo(t *testing.T) {
	w1, w2 := primitive.NewObjectID(), primitive.NewObjectID()
	p1 := models.Project{ID: primitive.NewObjectID(), WorkspaceID: w1}
	p2 := models.Project{ID: primitive.NewObjectID(), WorkspaceID: w2}
	p3 := models.Project{ID: primitive.NewObjectID(), WorkspaceID: w1}
	item := models.WorkItem{ID: primitive.NewObjectID(), ProjectID: p1.ID, WorkspaceID: w1}

	v := New(
		projects{p1.ID: p1, p2.ID: p2, p3.ID: p3},
		items{item.ID: item},
		nil,
	)
	ctx := context.Background()

	tests := []struct {
		name     string
		ws, proj primitive.ObjectID
		item     primitive.ObjectID
		wantKind apperr.Kind
		ok       bool
	}{
		{"valid path", w1, p1.ID, item.ID, 0, true},
		{"project from another workspace", w1, p2.ID, item.ID, apperr.KindBadHierarchy, false},
		{"item from another project", w1, p3.ID, item.ID, apperr.KindBadHierarchy, false},
		{"missing project", w1, primitive.NewObjectID(), item.ID, apperr.KindNotFound, false},
		{"missing item", w1, p1.ID, primitive.NewObjectID(), apperr.KindNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wi, err := v.WorkItemBelongsTo(ctx, tt.item, tt.proj, tt.ws)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if wi.ID != item.ID {
					t.Errorf("item = %v, want %v", wi.ID, item.ID)
				}
				return
			}
			if !apperr.Is(err, tt.wantKind) {
				t.Errorf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestProjectBelongsToWorkspace_StoreError(t *testing.T) {
	v := New(failing{}, items{}, nil)
	_, err := v.ProjectBelongsToWorkspace(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if !apperr.Is(err, apperr.KindInternal) {
		t.Errorf("err = %v, want Internal", err)
	}
}
