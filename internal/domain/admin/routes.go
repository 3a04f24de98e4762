package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxroom/voxroom-api/internal/middleware"
)

// Mounts carries the admin sub-routers owned by other engines.
type Mounts struct {
	Withdrawals chi.Router
	Contest     chi.Router
}

// Routes returns admin router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, mounts Mounts) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	// Password gate (authenticated, no admin claim yet)
	r.Post("/verify", h.Verify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())

		r.Get("/users/{userId}", h.GetUser)
		r.Get("/catalog", h.Catalog)
		r.Get("/audit", h.AuditLogs)
		r.Post("/agency/role", h.SetRole)

		if mounts.Withdrawals != nil {
			r.Route("/withdrawals", func(r chi.Router) {
				r.Use(h.Audited(ActionWithdrawals))
				r.Mount("/", mounts.Withdrawals)
			})
		}
		if mounts.Contest != nil {
			r.Route("/contest", func(r chi.Router) {
				r.Use(h.Audited(ActionContest))
				r.Mount("/", mounts.Contest)
			})
		}
	})

	return r
}
