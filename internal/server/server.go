// Package server provides the HTTP server and routing for the engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
	"github.com/amanahlabs/tazkiyah/internal/events"
)

// RouteRegistrar is implemented by every module handler
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Databases map[string]*database.DB
	EventBus  *events.Bus
	Handlers  []RouteRegistrar
}

// Server is the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server with all module routes mounted
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	if cfg.DevMode {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	systemHandlers := NewSystemHandlers(cfg.Databases, log)
	eventsStream := NewEventsStreamHandler(cfg.EventBus, log)
	eventsSocket := NewEventsSocketHandler(cfg.EventBus, log)

	router.Route("/api", func(r chi.Router) {
		for _, h := range cfg.Handlers {
			h.RegisterRoutes(r)
		}
		r.Get("/system/health", systemHandlers.HandleHealth)
		r.Get("/events/stream", eventsStream.ServeHTTP)
		r.Get("/events/ws", eventsSocket.ServeHTTP)
	})

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // streaming endpoints manage their own deadlines
			IdleTimeout:  120 * time.Second,
		},
		log: log,
	}
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("Request handled")
		})
	}
}
