package server

import (
	"net/http"

	"tale-weaver/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	store    *Store
	cfg      config.Config
	narrator Narrator
	images   *imageClient
	speech   *speechClient
}

func New(cfg config.Config, narrator Narrator) *Server {
	return &Server{
		store:    NewStore(),
		cfg:      cfg,
		narrator: narrator,
		images:   newImageClient(cfg),
		speech:   newSpeechClient(cfg),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api/lobbies", func(r chi.Router) {
		r.Post("/", s.handleCreateLobby)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", s.handleGetLobby)
			r.Post("/join", s.handleJoin)
			r.Post("/ready", s.handleReady)
			r.Post("/start", s.handleStart)
			r.Post("/choice", s.handleChoice)
			r.Post("/leave", s.handleLeave)
		})
	})
	r.Post("/api/speech", s.handleSpeech)

	return r
}
