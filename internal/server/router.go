package server

import (
	"lrc-translator/internal/config"
	"lrc-translator/internal/history"
	"lrc-translator/internal/translation"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BackendFactory builds the backend used for one request.
type BackendFactory func(translation.ClientConfig) translation.Backend

// DefaultBackendFactory returns an HTTP chat client.
func DefaultBackendFactory(cfg translation.ClientConfig) translation.Backend {
	return translation.NewChatClient(cfg)
}

// NewRouter wires the HTTP front end. recorder may be nil.
func NewRouter(cfg *config.Config, newBackend BackendFactory, recorder history.Recorder) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))

	h := NewTranslateHandler(cfg, newBackend, recorder)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)
		r.Post("/translate", h.Translate)
	})

	return r
}
