// internal/app/features/workspaces/search.go
package workspaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
)

// ServeSearchUsers handles GET /api/workspaces/users/search?query=.
func (h *Handler) ServeSearchUsers(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	people, err := h.Workspaces.SearchUsers(ctx, caller, r.URL.Query().Get("query"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, people)
}

// ServeSearchInvitable handles GET /api/workspaces/{workspaceId}/users/search?query=.
func (h *Handler) ServeSearchInvitable(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	people, err := h.Workspaces.SearchInvitable(ctx, caller, wsID, r.URL.Query().Get("query"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, people)
}
