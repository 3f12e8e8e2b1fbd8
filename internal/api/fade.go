package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/lumen-station/internal/lcc"
	"github.com/nerrad567/lumen-station/internal/lighting"
	"github.com/nerrad567/lumen-station/internal/station"
)

// fadeRequest is the body for POST /fade. A missing target fades to
// dark; duration 0 applies immediately.
type fadeRequest struct {
	Target          lighting.LightingState `json:"target"`
	DurationSeconds int                    `json:"duration_seconds"`
}

// handleStartFade starts a transition to the requested channel values,
// replacing any fade in flight. The fade runs asynchronously; the
// response carries the initial progress snapshot.
func (s *Server) handleStartFade(w http.ResponseWriter, r *http.Request) {
	var req fadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationSeconds < 0 {
		writeBadRequest(w, "duration_seconds must not be negative")
		return
	}

	err := s.station.StartFade(r.Context(), lighting.FadeRequest{
		Target:   req.Target,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		switch {
		case errors.Is(err, station.ErrNotRunning), errors.Is(err, lcc.ErrNotReady):
			writeUnavailable(w, "station cannot transmit")
		case errors.Is(err, lighting.ErrInvalidRequest):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to start fade")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   "accepted",
		"progress": s.station.Progress(),
	})
}

// handleAbortFade cancels the in-flight fade. Synchronous; segments
// already transmitted are not corrected.
func (s *Server) handleAbortFade(w http.ResponseWriter, _ *http.Request) {
	if err := s.station.Abort(); err != nil {
		if errors.Is(err, station.ErrNotRunning) {
			writeUnavailable(w, "station not running")
			return
		}
		writeInternalError(w, "failed to abort fade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFadeProgress returns the active session snapshot.
func (s *Server) handleFadeProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.station.Progress())
}
