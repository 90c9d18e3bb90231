// Package web provides the HTTP and WebSocket server for the Blaze task
// board: REST CRUD over cards, plans and plan files, the agent workflow
// endpoints, and real-time fan-out of board changes to subscribers.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/arctek/blaze/board"
	"github.com/arctek/blaze/internal/db"
)

// AgentClient is the boundary to the external natural-language agent. The
// agent is an opaque text-in/IDs-out collaborator; implementations run the
// call synchronously and honor the context deadline.
type AgentClient interface {
	CreateCardsFromPrompt(ctx context.Context, prompt, column string) ([]string, error)
	CreatePlanFromIdea(ctx context.Context, idea string) (string, error)
	GenerateCardsFromPlan(ctx context.Context, planID, extraContext string) ([]string, error)
}

// Server is the Blaze API server.
type Server struct {
	store    *board.Store
	hub      *Hub
	agent    AgentClient
	audit    *db.AuditStore
	logger   *slog.Logger
	token    string
	validate *validator.Validate
	server   *http.Server
}

// Config carries the server's collaborators. Agent and Audit may be nil, in
// which case the corresponding endpoints report the feature as unavailable.
type Config struct {
	Store  *board.Store
	Agent  AgentClient
	Audit  *db.AuditStore
	Token  string
	Logger *slog.Logger
}

// NewServer wires a server from explicitly constructed collaborators.
func NewServer(cfg Config) *Server {
	return &Server{
		store:    cfg.Store,
		hub:      NewHub(cfg.Logger),
		agent:    cfg.Agent,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
		token:    cfg.Token,
		validate: validator.New(),
	}
}

// Hub returns the broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health and auth, no credential required
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/auth", s.apiLogin)

	// Cards
	mux.HandleFunc("GET /api/cards", s.requireAuth(s.apiListCards))
	mux.HandleFunc("POST /api/cards", s.requireAuth(s.apiCreateCard))
	mux.HandleFunc("GET /api/cards/{id}", s.requireAuth(s.apiGetCard))
	mux.HandleFunc("PUT /api/cards/{id}", s.requireAuth(s.apiUpdateCard))
	mux.HandleFunc("DELETE /api/cards/{id}", s.requireAuth(s.apiDeleteCard))
	mux.HandleFunc("PATCH /api/cards/{id}/move", s.requireAuth(s.apiMoveCard))
	mux.HandleFunc("PATCH /api/cards/{id}/archive", s.requireAuth(s.apiArchiveCard))
	mux.HandleFunc("PATCH /api/cards/{id}/unarchive", s.requireAuth(s.apiUnarchiveCard))
	mux.HandleFunc("POST /api/columns/{column}/archive", s.requireAuth(s.apiArchiveColumn))

	// Board views
	mux.HandleFunc("GET /api/board", s.requireAuth(s.apiGetBoard))
	mux.HandleFunc("GET /api/board/stats", s.requireAuth(s.apiGetStats))

	// Agent workflow
	mux.HandleFunc("GET /api/agent/ready", s.requireAuth(s.apiListAgentReady))
	mux.HandleFunc("POST /api/cards/{id}/agent-progress", s.requireAuth(s.apiAddAgentProgress))
	mux.HandleFunc("PATCH /api/cards/{id}/agent-status", s.requireAuth(s.apiSetAgentStatus))
	mux.HandleFunc("POST /api/cards/{id}/criteria/{index}/check", s.requireAuth(s.apiToggleCriterion))

	// Natural language
	mux.HandleFunc("POST /api/agent/nl/create-cards", s.requireAuth(s.apiNLCreateCards))
	mux.HandleFunc("POST /api/agent/nl/create-plan", s.requireAuth(s.apiNLCreatePlan))
	mux.HandleFunc("POST /api/agent/nl/generate-cards", s.requireAuth(s.apiNLGenerateCards))
	mux.HandleFunc("GET /api/agent/audit", s.requireAuth(s.apiGetAgentAudit))

	// Plans
	mux.HandleFunc("GET /api/plans", s.requireAuth(s.apiListPlans))
	mux.HandleFunc("POST /api/plans", s.requireAuth(s.apiCreatePlan))
	mux.HandleFunc("GET /api/plans/{id}", s.requireAuth(s.apiGetPlan))
	mux.HandleFunc("PATCH /api/plans/{id}", s.requireAuth(s.apiUpdatePlan))
	mux.HandleFunc("DELETE /api/plans/{id}", s.requireAuth(s.apiDeletePlan))
	mux.HandleFunc("PATCH /api/plans/{id}/archive", s.requireAuth(s.apiArchivePlan))
	mux.HandleFunc("PATCH /api/plans/{id}/unarchive", s.requireAuth(s.apiUnarchivePlan))

	// Plan files
	mux.HandleFunc("POST /api/plans/{id}/files", s.requireAuth(s.apiAddPlanFile))
	mux.HandleFunc("GET /api/plans/{id}/files/{name}", s.requireAuth(s.apiGetPlanFile))
	mux.HandleFunc("PATCH /api/plans/{id}/files/{name}", s.requireAuth(s.apiUpdatePlanFile))
	mux.HandleFunc("DELETE /api/plans/{id}/files/{name}", s.requireAuth(s.apiDeletePlanFile))
	mux.HandleFunc("GET /api/plans/{id}/files/{name}/html", s.requireAuth(s.apiRenderPlanFile))

	// Real-time events
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.withLogging(mux)
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	s.logger.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"})
}

// withLogging wraps the mux with request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// jsonCreated writes a JSON response with a 201 status. Content-Type must be
// set before WriteHeader flushes the headers.
func (s *Server) jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// jsonError writes a JSON error response.
func (s *Server) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// storeError maps a domain error to the matching HTTP status. Every domain
// error surfaces as a response; none crashes the process.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		s.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, board.ErrConflict):
		s.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, board.ErrValidation):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("store operation failed", "error", err)
		s.jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
