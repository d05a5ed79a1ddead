// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/types"
)

// controlPage is the manual-control form.
var controlTmpl = template.Must(template.New("control").Parse(`<!DOCTYPE html>
<html>
<head><title>Rover Control</title></head>
<body>
<h1>Rover Control</h1>
<p>Current mode: <b>{{.Mode}}</b></p>
<form method="POST" action="/control">
  <input type="hidden" name="action" value="mode">
  <select name="mode">
    <option>MANUAL</option>
    <option>AUTOMATIC</option>
    <option>DEBUG</option>
  </select>
  <button type="submit">Set mode</button>
</form>
<h2>Manual command</h2>
<form method="POST" action="/control">
  <input type="hidden" name="action" value="command">
  <label>Car <input name="car_id" value="car-1"></label>
  <label>Turn (deg) <input name="turn" value="0"></label>
  <label>Move (mm) <input name="move" value="0"></label>
  <label>Speed (%) <input name="speed" value="50"></label>
  <label>Gripper
    <select name="gripper">
      <option value="">none</option>
      <option value="open">open</option>
      <option value="close">close</option>
    </select>
  </label>
  <button type="submit">Send</button>
</form>
</body>
</html>`))

// ControlHandler serves the manual-control form and applies its submissions.
type ControlHandler struct {
	deps Dependencies
}

// NewControlHandler creates a new control handler.
func NewControlHandler(deps Dependencies) *ControlHandler {
	return &ControlHandler{deps: deps}
}

// HandleControl handles GET and POST /control requests.
func (h *ControlHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderForm(w)
	case http.MethodPost:
		h.apply(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ControlHandler) renderForm(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = controlTmpl.Execute(w, struct{ Mode types.Mode }{Mode: h.deps.Mode()})
}

func (h *ControlHandler) apply(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_control"
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch r.PostFormValue("action") {
	case "mode":
		mode, err := types.ParseMode(r.PostFormValue("mode"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		h.deps.SetMode(mode)
		writeJSON(w, http.StatusOK, ackResponse{Status: "mode_set"})
	case "command":
		cmd, err := h.buildManualCommand(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SubmitManual(r.Context(), cmd); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{Status: "sent"})
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

// buildManualCommand composes a MANUAL-mode command from form fields, in the
// same emission order the form lists them.
func (h *ControlHandler) buildManualCommand(r *http.Request) (command.Command, error) {
	carID := r.PostFormValue("car_id")
	if carID == "" {
		carID = "car-1"
	}

	cmd := command.New(carID, types.ModeManual, time.Now().UnixMilli())
	cmd.Tag(command.GoalManual)

	if v := r.PostFormValue("speed"); v != "" && v != "0" {
		speed, err := strconv.Atoi(v)
		if err != nil {
			return command.Command{}, err
		}
		cmd.Speed(speed)
	}
	if v := r.PostFormValue("turn"); v != "" && v != "0" {
		deg, err := strconv.Atoi(v)
		if err != nil {
			return command.Command{}, err
		}
		cmd.Turn(deg)
	}
	if v := r.PostFormValue("move"); v != "" && v != "0" {
		mm, err := strconv.Atoi(v)
		if err != nil {
			return command.Command{}, err
		}
		cmd.Move(mm)
	}
	switch r.PostFormValue("gripper") {
	case "open":
		cmd.OpenGripper()
	case "close":
		cmd.CloseGripper()
	}

	return cmd, nil
}
