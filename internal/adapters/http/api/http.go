// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	service "github.com/hotlabel/hotlabel/internal/app"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/domain/profile"
	"github.com/hotlabel/hotlabel/internal/domain/ratelimit"
	"github.com/hotlabel/hotlabel/internal/domain/selector"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	InitSession(ctx context.Context, req profile.InitRequest) (profile.InitResult, error)
	UpdateProfile(ctx context.Context, sessionID string, req profile.UpdateRequest) (*model.Profile, error)
	SessionStats(ctx context.Context, publisherID, sessionID string) (*profile.Stats, error)

	NextTask(ctx context.Context, req selector.NextRequest) (*model.TaskView, error)
	BatchTasks(ctx context.Context, req selector.BatchRequest) (*model.Batch, error)
	SubmitResult(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)

	CheckRateLimit(ctx context.Context, publisherID, path string) ratelimit.Decision
}

// StatsProvider exposes operational statistics for GET /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
	Healthy(ctx context.Context) bool
}

// validate checks struct tags on inbound request bodies.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Server wires HTTP routes for the business API.
type Server struct {
	sessionsHandler *SessionsHandler
	tasksHandler    *TasksHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	limiter         *rateLimitMiddleware
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		sessionsHandler: NewSessionsHandler(deps),
		tasksHandler:    NewTasksHandler(deps),
		healthHandler:   NewHealthHandler(statsProvider),
		statsHandler:    NewStatsHandler(statsProvider),
		limiter:         newRateLimitMiddleware(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	limited := func(next http.HandlerFunc, endpoint string) http.HandlerFunc {
		return s.limiter.Wrap(MetricsMiddleware(next, endpoint))
	}

	mux.HandleFunc("POST /v1/users/sessions", limited(s.sessionsHandler.HandleInitSession, "sessions"))
	mux.HandleFunc("PATCH /v1/users/profile/{session_id}", limited(s.sessionsHandler.HandleUpdateProfile, "profile"))
	mux.HandleFunc("GET /v1/users/stats", limited(s.sessionsHandler.HandleUserStats, "user_stats"))
	mux.HandleFunc("GET /v1/tasks/next", limited(s.tasksHandler.HandleNextTask, "next_task"))
	mux.HandleFunc("POST /v1/tasks/{task_id}/submit", limited(s.tasksHandler.HandleSubmit, "submit"))
	mux.HandleFunc("GET /v1/tasks/batch", limited(s.tasksHandler.HandleBatch, "batch"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// publisherID extracts the caller identity. Identity is pre-validated
// upstream; anonymous callers share one bucket.
func publisherID(r *http.Request) string {
	if id := r.Header.Get("X-Publisher-ID"); id != "" {
		return id
	}
	return "anonymous"
}
