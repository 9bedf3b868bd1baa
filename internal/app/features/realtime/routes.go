// internal/app/features/realtime/routes.go
package realtime

import "github.com/go-chi/chi/v5"

// Routes serves /ws. Mount it behind RequireSignedIn; LoadPrincipal reads
// the token from ?token= on upgrade requests.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/projects/{projectId}", h.ServeProject)
	return r
}
