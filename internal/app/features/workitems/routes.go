// internal/app/features/workitems/routes.go
package workitems

import "github.com/go-chi/chi/v5"

// MountRoutes registers the work item routes on a router scoped to
// .../projects/{projectId}.
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/work-items", func(r chi.Router) {
		r.Get("/", h.ServeList)
		r.Post("/", h.HandleCreate)
		r.Route("/{workItemId}", func(r chi.Router) {
			r.Get("/", h.ServeGet)
			r.Patch("/", h.HandlePatch)
			r.Delete("/", h.HandleDelete)
			r.Post("/move", h.HandleMove)
		})
	})
}
