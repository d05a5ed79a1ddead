// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/rover/internal/adapters/repository"
	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest validates, gates, and enqueues one observation.
	Ingest(ctx context.Context, obs model.Observation) error

	// Mode reports and switches the externally-set operating mode.
	Mode() types.Mode
	SetMode(mode types.Mode)

	// SubmitManual dispatches a manually composed command.
	SubmitManual(ctx context.Context, cmd command.Command) error

	// Read operations expose the command audit trail.
	RecentCommands(ctx context.Context, n int) ([]repository.Entry, error)
	GoalCounts(ctx context.Context) (map[string]int, error)
}

// Server wires HTTP routes for the rover API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	telemetryHandler *TelemetryHandler
	controlHandler   *ControlHandler
	commandsHandler  *CommandsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxListLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider, deps),
		telemetryHandler: NewTelemetryHandler(deps),
		controlHandler:   NewControlHandler(deps),
		commandsHandler:  NewCommandsHandler(deps, maxListLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/telemetry", MetricsMiddleware(s.telemetryHandler.HandlePostTelemetry, "telemetry"))
	mux.HandleFunc("/control", MetricsMiddleware(s.controlHandler.HandleControl, "control"))
	mux.HandleFunc("/commands", MetricsMiddleware(s.commandsHandler.HandleGetCommands, "commands"))
}

type ackResponse struct {
	Status string `json:"status"`
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
