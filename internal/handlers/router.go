package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
)

// NewRouter wires every HTTP route. Auth and health routes are public; the
// API, event streams and images require a signed-in user.
func NewRouter(api *APIHandlers, authProvider auth.AuthProvider, health *Health) http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/api/health", health.Detailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/auth/login", authProvider.LoginHandler)
	r.Get("/auth/callback", authProvider.CallbackHandler)
	r.Get("/auth/logout", authProvider.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(authProvider.Middleware)

		r.Get("/images/{owner}/{file}", api.ServeImage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", api.Me)
			r.Get("/labels", api.Labels)
			r.Get("/stats", api.Stats)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", api.ListPlayers)
				r.Post("/", api.CreatePlayer)
				r.Post("/form", api.SubmitPlayerForm)
				r.Get("/{id}", api.GetPlayer)
				r.Put("/{id}", api.UpdatePlayer)
				r.Delete("/{id}", api.DeletePlayer)
				r.Post("/{id}/image", api.UploadImage)
			})

			r.Route("/selection", func(r chi.Router) {
				r.Get("/", api.GetSelection)
				r.Put("/", api.SetSelection)
				r.Delete("/", api.ClearSelection)
				r.Post("/toggle/{id}", api.ToggleSelection)
				r.Post("/all", api.SelectAll)
			})

			r.Route("/draw", func(r chi.Router) {
				r.Get("/", api.CurrentDraw)
				r.Post("/", api.Draw)
				r.Delete("/", api.DismissDraw)
				r.Post("/redo", api.Redraw)
			})

			r.Get("/events", api.EventsSSE)
			r.Get("/ws", api.EventsWS)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/me", http.StatusSeeOther)
	})
	return r
}
