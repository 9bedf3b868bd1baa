// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/planhub/internal/app/services/users"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/ratelimit"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves registration and password login.
type Handler struct {
	Users   *users.Service
	Tokens  *auth.TokenManager
	Limiter *ratelimit.LoginLimiter
	Log     *zap.Logger
}

// NewHandler wires the handler. limiter may be nil to disable throttling.
func NewHandler(svc *users.Service, tokens *auth.TokenManager, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Users: svc, Tokens: tokens, Limiter: limiter, Log: logger}
}

// Session is what register, login and profile changes return.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// IssueSession signs a fresh token for u.
func IssueSession(tm *auth.TokenManager, u models.User) (Session, error) {
	tok, exp, err := tm.Issue(auth.Principal{ID: u.ID, Email: u.Email, Name: u.FullName})
	if err != nil {
		return Session{}, apperr.Internal("auth.issue", err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Register(ctx, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Users.RecordLogin(ctx, u.ID, models.LoginRegister, ratelimit.ClientIP(r), r.UserAgent())
	sess, err := IssueSession(h.Tokens, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, sess)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login. Attempts are throttled per
// client IP and per email.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
			respond.JSON(w, http.StatusTooManyRequests, respond.ErrorBody{
				Error:   "rate_limited",
				Message: reason,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Login(ctx, in.Email, in.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthenticated) {
			h.Log.Info("login failed", zap.String("ip", ratelimit.ClientIP(r)))
		}
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.Users.RecordLogin(ctx, u.ID, models.LoginPassword, ratelimit.ClientIP(r), r.UserAgent())

	sess, err := IssueSession(h.Tokens, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	respond.JSON(w, http.StatusOK, sess)
}

