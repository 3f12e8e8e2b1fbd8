package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/lumen-station/internal/display"
)

// displayResponse is the wire form of the display power snapshot.
// Durations are whole seconds throughout the API.
type displayResponse struct {
	State              string `json:"state"`
	Interactive        bool   `json:"interactive"`
	ScreenOn           bool   `json:"screen_on"`
	PendingWake        bool   `json:"pending_wake"`
	IdleTimeoutSeconds int    `json:"idle_timeout_seconds"`
}

func displayToResponse(st display.Status) displayResponse {
	return displayResponse{
		State:              st.State.String(),
		Interactive:        st.Interactive,
		ScreenOn:           st.ScreenOn,
		PendingWake:        st.PendingWake,
		IdleTimeoutSeconds: int(st.IdleTimeout / time.Second),
	}
}

// handleGetDisplay returns the display power snapshot.
func (s *Server) handleGetDisplay(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, displayToResponse(s.station.DisplayStatus()))
}

// handleDisplayWake registers user activity. A sleeping or fading-out
// display latches the wake for the next tick; the response reflects
// the state at request time.
func (s *Server) handleDisplayWake(w http.ResponseWriter, _ *http.Request) {
	s.station.NotifyActivity()
	writeJSON(w, http.StatusAccepted, displayToResponse(s.station.DisplayStatus()))
}

// handleDisplaySleep requests manual sleep. Ignored unless the display
// is active; the transition happens on the next tick.
func (s *Server) handleDisplaySleep(w http.ResponseWriter, _ *http.Request) {
	s.station.Sleep()
	writeJSON(w, http.StatusAccepted, displayToResponse(s.station.DisplayStatus()))
}

// timeoutRequest is the body for PUT /display/timeout.
type timeoutRequest struct {
	// Seconds is the new idle timeout. 0 disables the timer; nonzero
	// values clamp to the documented bounds.
	Seconds int `json:"seconds"`
}

// handleDisplayTimeout persists a new idle timeout and applies it
// live. The response carries the applied (possibly clamped) value.
func (s *Server) handleDisplayTimeout(w http.ResponseWriter, r *http.Request) {
	var req timeoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Seconds < 0 {
		writeBadRequest(w, "seconds must not be negative")
		return
	}

	applied, err := s.station.SetIdleTimeout(r.Context(), time.Duration(req.Seconds)*time.Second)
	if err != nil {
		writeInternalError(w, "failed to set idle timeout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"idle_timeout_seconds": int(applied / time.Second),
	})
}
