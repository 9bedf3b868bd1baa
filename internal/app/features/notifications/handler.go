// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	"github.com/dalemusser/planhub/internal/app/services/invitations"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the caller's inbox and invite actions.
type Handler struct {
	Invitations *invitations.Service
	Log         *zap.Logger
}

func NewHandler(svc *invitations.Service, logger *zap.Logger) *Handler {
	return &Handler{Invitations: svc, Log: logger}
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (caller, id primitive.ObjectID, ok bool) {
	caller, err := shared.Caller(r)
	if err == nil {
		id, err = shared.ObjectID(r, "id")
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return caller, id, false
	}
	return caller, id, true
}

// ServeInbox handles GET /api/notifications.
func (h *Handler) ServeInbox(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.Invitations.Inbox(ctx, caller)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

// ServeHasUnread handles GET /api/notifications/has-unread.
func (h *Handler) ServeHasUnread(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	unread, err := h.Invitations.HasUnread(ctx, caller)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"hasUnread": unread})
}

// HandleMarkRead handles DELETE /api/notifications/{id}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Invitations.MarkRead(ctx, caller, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}

// HandleAccept handles POST /api/notifications/{id}/accept and answers with
// the workspace the caller just joined.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	wsID, err := h.Invitations.Accept(ctx, caller, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"workspaceId": wsID.Hex()})
}

// HandleReject handles DELETE /api/notifications/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Invitations.Reject(ctx, caller, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}
