// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Routes serves /api/notifications. Mount it behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeInbox)
	r.Get("/has-unread", h.ServeHasUnread)
	r.Delete("/{id}/read", h.HandleMarkRead)
	r.Post("/{id}/accept", h.HandleAccept)
	r.Delete("/{id}/reject", h.HandleReject)
	return r
}
