package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

type RouterConfig struct {
	Service        SchedulingService
	DB             *bun.DB
	Log            *slog.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "api"))

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", healthHandler(cfg.DB))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/appointments", createAppointmentHandler(cfg.Service, log))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service, log))
		r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service, log))
		r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service, log))
		r.Get("/providers/{id}/slots", providerSlotsHandler(cfg.Service, log))
	})

	return r
}

func healthHandler(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
