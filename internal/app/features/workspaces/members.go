// internal/app/features/workspaces/members.go
package workspaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
)

// ServeMe handles GET /api/workspaces/{workspaceId}/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	me, err := h.Workspaces.Me(ctx, caller, wsID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, me)
}

// ServeMembers handles GET /api/workspaces/{workspaceId}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	people, err := h.Workspaces.Members(ctx, caller, wsID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, people)
}

type inviteRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=50,dive,useremail" label:"Emails"`
}

type inviteResponse struct {
	Invited int `json:"invited"`
}

// HandleInvite handles POST /api/workspaces/{workspaceId}/members.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in inviteRequest
	if err := shared.DecodeValid(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	n, err := h.Workspaces.Invite(ctx, caller, wsID, in.Emails)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, inviteResponse{Invited: n})
}

type roleRequest struct {
	Role string `json:"role"`
}

// HandleChangeRole handles PUT /api/workspaces/{workspaceId}/members/{userId}/role.
// Role validity is checked by the service so the order of checks holds.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	target, err := shared.ObjectID(r, "userId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in roleRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	role, err := h.Workspaces.ChangeRole(ctx, caller, wsID, target, in.Role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{
		"userId": target.Hex(),
		"role":   role.Display(),
	})
}

// HandleRemoveMember handles DELETE /api/workspaces/{workspaceId}/members/{userId}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	target, err := shared.ObjectID(r, "userId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Workspaces.RemoveMember(ctx, caller, wsID, target); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}

// HandleLeave handles DELETE /api/workspaces/{workspaceId}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Workspaces.Leave(ctx, caller, wsID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}

// ServeAudit lists recent administrative events. Admin only.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	caller, wsID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Workspaces.AuditTrail(ctx, caller, wsID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, events)
}
