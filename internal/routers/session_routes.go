package routers

import (
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SessionRoutes(router *chi.Mux, sessionHandler *handlers.SessionHandler) {
	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.PersistSessionRequest]()).Post("/", sessionHandler.PersistSessionHandler)
		r.Get("/data/{socketId}", sessionHandler.LiveSessionHandler)
		r.Get("/all/{email}", sessionHandler.ListSessionsHandler)
		r.Get("/{id}", sessionHandler.GetSessionHandler)
	})
}

func InterviewRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler) {
	router.Get("/ws", interviewHandler.InterviewWS)
}

func MetricsRoutes(router *chi.Mux) {
	router.Handle("/metrics", promhttp.Handler())
}
