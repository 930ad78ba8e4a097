package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hazardwatch/internal/platform/logger"
	"hazardwatch/internal/platform/metrics"
)

// NewRouter mounts the dashboard endpoints and /metrics. updateGauges runs
// before every metrics scrape and may be nil.
func NewRouter(h *Handler, log *slog.Logger, met *metrics.Metrics, updateGauges func()) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log, "/status", "/frame.jpg", "/metrics"))
	r.Use(metrics.RequestMiddleware(met))

	if met != nil {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			met.Handler(updateGauges).ServeHTTP(w, r)
		})
	}

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/", h.StartSession)
		r.Post("/stop", h.StopSession)
		r.Post("/snapshot", h.Snapshot)
	})
	r.Get("/status", h.GetStatus)
	r.Get("/frame.jpg", h.GetFrame)
	r.Route("/hazards", func(r chi.Router) {
		r.Get("/", h.ListHazards)
		r.Get("/summary", h.HazardSummary)
	})
	r.Get("/ws", h.ServeWS)
	return r
}
