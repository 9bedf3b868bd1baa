// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	projectsvc "github.com/dalemusser/planhub/internal/app/services/projects"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Projects *projectsvc.Service
	Log      *zap.Logger
}

func NewHandler(svc *projectsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Projects: svc, Log: logger}
}

// ids resolves the caller and the path ids. On failure the error response
// is already written.
func (h *Handler) ids(w http.ResponseWriter, r *http.Request, names ...string) (primitive.ObjectID, []primitive.ObjectID, bool) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return caller, nil, false
	}
	ids, err := shared.ObjectIDs(r, names...)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return caller, nil, false
	}
	return caller, ids, true
}

// ServeList handles GET .../projects.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Projects.List(ctx, caller, ids[0])
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// HandleCreate handles POST .../projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId")
	if !ok {
		return
	}
	var in projectsvc.CreateInput
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Projects.Create(ctx, caller, ids[0], in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

// ServeGet handles GET .../projects/{projectId}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId", "projectId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Projects.Get(ctx, caller, ids[0], ids[1])
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// HandlePatch handles PATCH .../projects/{projectId}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId", "projectId")
	if !ok {
		return
	}
	var in projectsvc.PatchInput
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Projects.Patch(ctx, caller, ids[0], ids[1], in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE .../projects/{projectId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId", "projectId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Projects.Delete(ctx, caller, ids[0], ids[1]); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}

// ServeIsCreator handles GET .../projects/{projectId}/is-creator.
func (h *Handler) ServeIsCreator(w http.ResponseWriter, r *http.Request) {
	caller, ids, ok := h.ids(w, r, "workspaceId", "projectId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	yes, err := h.Projects.IsCreator(ctx, caller, ids[0], ids[1])
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"isCreator": yes})
}
