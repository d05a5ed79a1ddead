// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rover/internal/adapters/mq/queue"
	"github.com/okian/rover/internal/domain/freshness"
	"github.com/okian/rover/internal/domain/model"
)

// TelemetryHandler handles inbound sensor observations.
type TelemetryHandler struct {
	deps Dependencies
}

// NewTelemetryHandler creates a new telemetry handler.
func NewTelemetryHandler(deps Dependencies) *TelemetryHandler {
	return &TelemetryHandler{deps: deps}
}

// HandlePostTelemetry handles POST /telemetry requests.
func (h *TelemetryHandler) HandlePostTelemetry(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_telemetry"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var obs model.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.Ingest(r.Context(), obs); err != nil {
		switch {
		case errors.Is(err, freshness.ErrOutOfOrder), errors.Is(err, freshness.ErrTooOld):
			// Out-of-order or older than the freshness window. Dropped by
			// contract; the car should simply send the next reading.
			writeJSON(w, http.StatusOK, ackResponse{Status: "dropped_stale"})
		case errors.Is(err, queue.ErrBackpressure):
			writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, queue.ErrBackpressure))
		default:
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		}
		return
	}

	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
