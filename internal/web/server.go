package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config holds server configuration
type Config struct {
	Port        int
	CORSOrigins []string // origins allowed to call /api/v1; empty disables CORS
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	hub        *Hub
}

// NewServer creates a new HTTP server. hub may be nil, which disables /ws.
func NewServer(cfg *Config, hub *Hub) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		config: cfg,
		hub:    hub,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	if s.hub != nil {
		s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.hub, w, r)
		})
	}

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			_ = err // Client disconnected
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterDashboardHandler registers the HTML dashboard and its action endpoints.
// Actions are plain form posts answered with a redirect to /.
func (s *Server) RegisterDashboardHandler(handler interface{}) {
	type dashboardHandler interface {
		Dashboard(w http.ResponseWriter, r *http.Request)
		Unlock(w http.ResponseWriter, r *http.Request)
		Refresh(w http.ResponseWriter, r *http.Request)
		Retry(w http.ResponseWriter, r *http.Request)
		ClearCredential(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(dashboardHandler); ok {
		s.router.Group(func(r chi.Router) {
			// fetches are asynchronous, so page renders never wait on the upstream
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/", h.Dashboard)
			r.Post("/unlock", h.Unlock)
			r.Post("/refresh", h.Refresh)
			r.Post("/retry", h.Retry)
			r.Post("/credential/clear", h.ClearCredential)
		})
	}
}

// RegisterAPIHandler registers the JSON API.
func (s *Server) RegisterAPIHandler(handler interface{}) {
	type apiHandler interface {
		GetState(w http.ResponseWriter, r *http.Request)
		TestConnection(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(apiHandler); ok {
		s.router.Route("/api/v1", func(r chi.Router) {
			if len(s.config.CORSOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: s.config.CORSOrigins,
					AllowedMethods: []string{http.MethodGet, http.MethodOptions},
					AllowedHeaders: []string{"Accept", "Content-Type"},
					MaxAge:         300,
				}))
			}
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/state", h.GetState)
			r.Get("/connection", h.TestConnection)
		})
	}
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
