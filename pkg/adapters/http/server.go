package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/observability"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/puzzle"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Engine defines the subset of hanoi.Engine served over HTTP.
type Engine interface {
	TryStartLearning(ctx context.Context, maxEpisodes int, stepDelay time.Duration) (<-chan error, error)
	StopLearning()
	Reset()
	Status() hanoi.Status
	OptimalPolicy() policy.Map
	BestAction(state domain.State) (domain.Action, bool)
	SolveWithPolicy() domain.Trajectory
	QValues() []domain.QEntry
	History() []domain.EpisodeEvent
	ValidateMove(state domain.State, action domain.Action) error
	Events() *observability.Stream
	Rules() puzzle.Rules
}

// Server serves the learning control API.
type Server struct {
	Engine Engine

	// ctx outlives requests; learning runs started over HTTP are bound to it.
	ctx      context.Context
	logger   *slog.Logger
	metrics  http.Handler
	validate *validator.Validate
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h (typically promhttp) on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// StartRequest is the body of POST /learning/start.
type StartRequest struct {
	MaxEpisodes int `json:"max_episodes" validate:"required,gte=1,lte=100000"`
	StepDelayMs int `json:"step_delay_ms" validate:"gte=0,lte=60000"`
}

// ValidateRequest is the body of POST /moves/validate.
type ValidateRequest struct {
	State  []int         `json:"state" validate:"required,min=1"`
	Action domain.Action `json:"action"`
}

// ValidateResponse reports whether a move is legal.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NewHandler creates a new HTTP handler for the engine.
// ctx bounds learning runs started through the API.
func NewHandler(ctx context.Context, engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		ctx:      ctx,
		logger:   logging.NewNop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/status", s.GetStatus)
	r.Post("/learning/start", s.StartLearning)
	r.Post("/learning/stop", s.StopLearning)
	r.Post("/reset", s.Reset)
	r.Get("/policy", s.GetPolicy)
	r.Get("/policy/best", s.GetBestAction)
	r.Get("/solve", s.Solve)
	r.Get("/qtable", s.GetQTable)
	r.Get("/history", s.GetHistory)
	r.Post("/moves/validate", s.ValidateMove)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	rules := s.Engine.Rules()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "hanoi-http",
		"version": strings.TrimSpace(hanoi.Version),
		"disks":   rules.Disks,
		"pegs":    rules.Pegs,
	})
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Status())
}

// StartLearning handles the POST /learning/start request.
// The run continues after the response; 409 is returned if one is already active.
func (s *Server) StartLearning(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartLearning: invalid request body", "error", err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	delay := time.Duration(body.StepDelayMs) * time.Millisecond
	done, err := s.Engine.TryStartLearning(s.ctx, body.MaxEpisodes, delay)
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	go func() {
		if err := <-done; err != nil {
			s.logger.Error("learning run failed", "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"started":       true,
		"max_episodes":  body.MaxEpisodes,
		"step_delay_ms": body.StepDelayMs,
	})
}

// StopLearning handles the POST /learning/stop request.
func (s *Server) StopLearning(w http.ResponseWriter, r *http.Request) {
	s.Engine.StopLearning()
	s.writeJSON(w, http.StatusOK, s.Engine.Status())
}

// Reset handles the POST /reset request.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.Engine.Reset()
	s.writeJSON(w, http.StatusOK, s.Engine.Status())
}

// GetPolicy handles the GET /policy request.
func (s *Server) GetPolicy(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.OptimalPolicy())
}

// GetBestAction handles the GET /policy/best?state=0|0|0 request.
func (s *Server) GetBestAction(w http.ResponseWriter, r *http.Request) {
	state, err := domain.StateKey(r.URL.Query().Get("state")).State()
	if err != nil || !s.Engine.Rules().ValidState(state) {
		http.Error(w, fmt.Sprintf("Invalid state %q", r.URL.Query().Get("state")), http.StatusBadRequest)
		return
	}

	action, ok := s.Engine.BestAction(state)
	if !ok {
		http.Error(w, domain.ErrNoValidActions.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, action)
}

// Solve handles the GET /solve request.
func (s *Server) Solve(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.SolveWithPolicy())
}

// GetQTable handles the GET /qtable request.
func (s *Server) GetQTable(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.QValues())
}

// GetHistory handles the GET /history request.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.History())
}

// ValidateMove handles the POST /moves/validate request.
func (s *Server) ValidateMove(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("ValidateMove: invalid request body", "error", err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.Engine.ValidateMove(domain.State(body.State), body.Action)
	var invalid *domain.InvalidActionError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
	case errors.As(err, &invalid):
		s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Reason: invalid.Reason})
	default:
		http.Error(w, fmt.Sprintf("Validate error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ValidateMove failed", "error", err)
	}
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional types query (e.g. "episode,reset") filters event types.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	var types []domain.EventType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, domain.EventType(strings.TrimSpace(t)))
		}
	}

	events, cancel := s.Engine.Events().Subscribe(types...)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "types", types)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected")
			return
		case <-s.ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				s.logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", evt.Type, evt.ID, payload)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
