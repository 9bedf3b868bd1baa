// internal/app/features/workitems/handler.go
package workitems

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	itemsvc "github.com/dalemusser/planhub/internal/app/services/workitems"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Items *itemsvc.Service
	Log   *zap.Logger
}

func NewHandler(svc *itemsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Items: svc, Log: logger}
}

// path holds the ids of a work item route.
type path struct {
	caller, ws, project, item primitive.ObjectID
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request, withItem bool) (path, bool) {
	var p path
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return p, false
	}
	names := []string{"workspaceId", "projectId"}
	if withItem {
		names = append(names, "workItemId")
	}
	ids, err := shared.ObjectIDs(r, names...)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return p, false
	}
	p.caller, p.ws, p.project = caller, ids[0], ids[1]
	if withItem {
		p.item = ids[2]
	}
	return p, true
}

// ServeList handles GET .../work-items.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, false)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.Items.List(ctx, p.caller, p.ws, p.project)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

// HandleCreate handles POST .../work-items.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, false)
	if !ok {
		return
	}
	var in itemsvc.CreateInput
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	wi, err := h.Items.Create(ctx, p.caller, p.ws, p.project, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, wi)
}

// ServeGet handles GET .../work-items/{workItemId}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wi, err := h.Items.Get(ctx, p.caller, p.ws, p.project, p.item)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, wi)
}

// HandlePatch handles PATCH .../work-items/{workItemId}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, true)
	if !ok {
		return
	}
	var in itemsvc.PatchInput
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wi, err := h.Items.Patch(ctx, p.caller, p.ws, p.project, p.item, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, wi)
}

// HandleMove handles POST .../work-items/{workItemId}/move.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, true)
	if !ok {
		return
	}
	var in itemsvc.MoveInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	wi, err := h.Items.Move(ctx, p.caller, p.ws, p.project, p.item, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, wi)
}

// HandleDelete handles DELETE .../work-items/{workItemId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Items.Delete(ctx, p.caller, p.ws, p.project, p.item); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}
