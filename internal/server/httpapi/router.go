package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passbeam/passbeam/internal/server/observability/middleware"
)

// NewRouter builds the HTTP surface: operational endpoints, the public
// root placeholder, and the vanity pass routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Bare root has nothing to serve.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/{passName}", h.ShowPass)
	r.Post("/{passName}", h.CreatePass)
	r.Put("/{passName}", h.UpdatePass)

	return r
}
