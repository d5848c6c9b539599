package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.corsMiddleware())

	r.Get("/health", s.handleHealth)
	r.Get("/decks", s.handleDecks)

	r.Route("/decks/{deck}", func(r chi.Router) {
		r.Get("/cards", s.handleListCards)
		r.Post("/cards", s.handleImportCards)
		r.Delete("/cards/{id}", s.handleDeleteCard)
		r.Get("/queue", s.handleQueue)
		r.Get("/stats", s.handleStats)
		r.Post("/sessions", s.handleStartSession)
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/next", s.handleNextCard)
		r.Post("/answer", s.handleAnswer)
		r.Post("/undo", s.handleUndo)
		r.Delete("/", s.handleEndSession)
	})
	return r
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}).Handler
}
