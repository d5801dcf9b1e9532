package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP API
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/sql", s.handleSQL)
		r.Post("/sql-embed", s.handleSQL)
		r.Post("/query", s.handleQuery)
		r.Post("/answer", s.handleAnswer)
		r.Get("/vector/query", s.handleVectorQuery)
		r.Get("/vector-health", s.handleVectorHealth)
	})

	return r
}
