// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/login"
	"github.com/dalemusser/planhub/internal/app/features/shared"
	usersvc "github.com/dalemusser/planhub/internal/app/services/users"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the caller's own account under /api/users/me.
type Handler struct {
	Users  *usersvc.Service
	Tokens *auth.TokenManager
	Log    *zap.Logger
}

func NewHandler(svc *usersvc.Service, tokens *auth.TokenManager, logger *zap.Logger) *Handler {
	return &Handler{Users: svc, Tokens: tokens, Log: logger}
}

// ServeMe handles GET /api/users/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Me(ctx, caller)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// HandleUpdateProfile handles PATCH /api/users/me. The response carries a
// new token because the email claim may have changed.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in usersvc.ProfileInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, caller, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	sess, err := login.IssueSession(h.Tokens, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, sess)
}

// HandleChangePassword handles PATCH /api/users/me/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in usersvc.PasswordInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.ChangePassword(ctx, caller, in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.NoContent(w)
}

// ServeLogins handles GET /api/users/me/logins.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Users.RecentLogins(ctx, caller)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, recs)
}
