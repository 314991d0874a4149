// Package mockupstream is a local stand-in for the external auth and
// statistics endpoints, used for development and end-to-end tests.
package mockupstream

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/stats"
)

// Config holds the mock upstream configuration.
type Config struct {
	Username string
	Password string
	// TokenTTL expires issued tokens; zero means they never expire.
	TokenTTL time.Duration
	// Random serves a freshly generated snapshot per request.
	Random bool
	// Snapshot overrides the built-in sample when set.
	Snapshot *stats.Snapshot
}

// Server implements the upstream endpoints.
type Server struct {
	cfg    Config
	router *chi.Mux
	log    *logger.Logger

	mu     sync.Mutex
	tokens map[string]time.Time // token -> issued at
	rng    *rand.Rand
	now    func() time.Time

	// optional failure injection for tests
	statsStatus int
}

// New builds the mock upstream router.
func New(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		log:    logger.Get().Component("mockupstream"),
		tokens: make(map[string]time.Time),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:    time.Now,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Post("/api-token-auth/", s.handleToken)
	s.router.Get("/statistics/", s.handleStatistics)
	s.router.Get("/admin/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Mock admin</h1>"))
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RevokeAll invalidates every issued token, as a server-side logout would.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.tokens = make(map[string]time.Time)
	s.mu.Unlock()
}

// FailStatistics makes the statistics endpoint answer with status. Zero restores normal service.
func (s *Server) FailStatistics(status int) {
	s.mu.Lock()
	s.statsStatus = status
	s.mu.Unlock()
}

// IssuedTokens returns how many tokens are currently valid.
func (s *Server) IssuedTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}
	if req.Username != s.cfg.Username || req.Password != s.cfg.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	s.tokens[token] = s.now()
	s.mu.Unlock()

	s.log.Info().Str("token", logger.MaskToken(token)).Msg("issued token")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"user_id":  1,
		"email":    req.Username + "@localhost",
		"is_staff": true,
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Token ")
	if !ok || !s.valid(token) {
		w.Header().Set("WWW-Authenticate", "Token")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
		return
	}

	s.mu.Lock()
	status := s.statsStatus
	var snap *stats.Snapshot
	switch {
	case s.cfg.Random:
		snap = stats.Random(s.rng)
	case s.cfg.Snapshot != nil:
		snap = s.cfg.Snapshot
	default:
		snap = stats.Sample()
	}
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.cfg.TokenTTL > 0 && s.now().Sub(issued) > s.cfg.TokenTTL {
		delete(s.tokens, token)
		return false
	}
	return true
}

// LoadFixture reads a snapshot from a YAML or JSON file.
func LoadFixture(path string) (*stats.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap stats.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // Client disconnected
	}
}
