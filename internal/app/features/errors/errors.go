// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler answers requests the router could not match. Every body has the
// same {error, message} shape as service errors.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound is mounted as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, h.Log, apperr.NotFound("No route for %s %s.", r.Method, r.URL.Path))
}

// MethodNotAllowed keeps the 405 status but uses the JSON error body.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, respond.ErrorBody{
		Error:   "method_not_allowed",
		Message: r.Method + " is not supported here.",
	})
}

// Recoverer turns a panic into a logged Internal error.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Log.Error("panic serving request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{
					Error:   apperr.KindInternal.String(),
					Message: "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
