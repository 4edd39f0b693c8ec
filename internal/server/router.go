package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/semantrics/internal/api"
	"github.com/cloo-solutions/semantrics/internal/api/handlers"
	"github.com/cloo-solutions/semantrics/internal/api/middleware"
	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
)

const maxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	EventHandler *handlers.EventHandler
	Logger       logger.Logger
}

// NewRouter wires the collector endpoints. Each event kind is accepted at
// POST /<kind>.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, kind := range domain.AllEventKinds {
		r.Post("/"+string(kind), cfg.EventHandler.Ingest(kind))
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", cfg.EventHandler.List)
		r.Get("/stats", cfg.EventHandler.Stats)
	})

	return r
}
