// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes serves /api/users. Mount it behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/me", h.ServeMe)
	r.Patch("/me", h.HandleUpdateProfile)
	r.Patch("/me/password", h.HandleChangePassword)
	r.Get("/me/logins", h.ServeLogins)
	return r
}
