// Package api serves the operational HTTP surface: health probes and
// on-demand job runs.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", handler.ready)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs", handler.listJobs)
		r.Post("/jobs/{name}/run", handler.runJob)
		r.Post("/notifications/test", handler.testNotification)
	})
	return r
}
