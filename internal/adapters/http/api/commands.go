// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
)

// Default listing limit when the query omits one.
const defaultListLimit = 20

// CommandsHandler exposes the command audit trail.
type CommandsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps Dependencies, maxLimit int) *CommandsHandler {
	return &CommandsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetCommands handles GET /commands?limit=N requests.
func (h *CommandsHandler) HandleGetCommands(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_commands"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	if r.URL.Query().Get("group") == "goal" {
		counts, err := h.deps.GoalCounts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, counts)
		return
	}

	n := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.RecentCommands(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
