// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// MountRoutes registers the project routes on a router already scoped to
// /api/workspaces/{workspaceId}. items mounts the work item routes under
// each project.
func MountRoutes(r chi.Router, h *Handler, items func(r chi.Router)) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ServeList)
		r.Post("/", h.HandleCreate)
		r.Route("/{projectId}", func(r chi.Router) {
			r.Get("/", h.ServeGet)
			r.Patch("/", h.HandlePatch)
			r.Delete("/", h.HandleDelete)
			r.Get("/is-creator", h.ServeIsCreator)
			if items != nil {
				items(r)
			}
		})
	})
}
