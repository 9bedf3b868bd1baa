// internal/app/features/workspaces/workspace.go
package workspaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	wssvc "github.com/dalemusser/planhub/internal/app/services/workspaces"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
)

// ServeList handles GET /api/workspaces.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Workspaces.List(ctx, caller)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/workspaces.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in wssvc.CreateInput
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ws, err := h.Workspaces.Create(ctx, caller, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ws)
}

// ServeGet handles GET /api/workspaces/{workspaceId}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ws, err := h.Workspaces.Get(ctx, caller, wsID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, ws)
}

// ServeOwner handles GET /api/workspaces/{workspaceId}/owner.
func (h *Handler) ServeOwner(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	owner, err := h.Workspaces.Owner(ctx, caller, wsID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"ownerId": owner.Hex()})
}

type renameRequest struct {
	Name string `json:"name"`
}

// HandleRename handles POST /api/workspaces/{workspaceId}/rename.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in renameRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ws, err := h.Workspaces.Rename(ctx, caller, wsID, in.Name)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, ws)
}

// HandleDelete handles DELETE /api/workspaces/{workspaceId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Workspaces.Delete(ctx, caller, wsID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}
