// internal/app/features/workspaces/routes.go
package workspaces

import "github.com/go-chi/chi/v5"

// Routes serves /api/workspaces. Mount it behind RequireSignedIn. Projects
// and work items hang off /{workspaceId}/projects and are mounted by the
// caller through nested.
func Routes(h *Handler, nested func(r chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/users/search", h.ServeSearchUsers)

	r.Route("/{workspaceId}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Delete("/", h.HandleDelete)
		r.Get("/owner", h.ServeOwner)
		r.Post("/rename", h.HandleRename)
		r.Get("/me", h.ServeMe)

		r.Get("/members", h.ServeMembers)
		r.Post("/members", h.HandleInvite)
		r.Put("/members/{userId}/role", h.HandleChangeRole)
		r.Delete("/members/{userId}", h.HandleRemoveMember)
		r.Delete("/leave", h.HandleLeave)
		r.Get("/audit", h.ServeAudit)

		r.Get("/users/search", h.ServeSearchInvitable)

		if nested != nil {
			nested(r)
		}
	})
	return r
}
