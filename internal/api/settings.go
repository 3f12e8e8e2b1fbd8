package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/lumen-station/internal/station"
)

// settingsResponse is the wire form of the runtime settings.
type settingsResponse struct {
	AutoApplyEnabled          bool   `json:"auto_apply_enabled"`
	AutoApplyDurationSeconds  int    `json:"auto_apply_duration_seconds"`
	DisplayIdleTimeoutSeconds int    `json:"display_idle_timeout_seconds"`
	BaseEventID               string `json:"base_event_id"`
}

func settingsToResponse(st station.Settings) settingsResponse {
	return settingsResponse{
		AutoApplyEnabled:          st.AutoApplyEnabled,
		AutoApplyDurationSeconds:  int(st.AutoApplyDuration / time.Second),
		DisplayIdleTimeoutSeconds: int(st.DisplayIdleTimeout / time.Second),
		BaseEventID:               st.BaseEventID.BaseString(),
	}
}

// settingsPatchRequest is the body for PATCH /settings. Absent fields
// are left unchanged.
type settingsPatchRequest struct {
	AutoApplyEnabled          *bool   `json:"auto_apply_enabled"`
	AutoApplyDurationSeconds  *int    `json:"auto_apply_duration_seconds"`
	DisplayIdleTimeoutSeconds *int    `json:"display_idle_timeout_seconds"`
	BaseEventID               *string `json:"base_event_id"`
}

// handleGetSettings returns the persisted runtime settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.station.Settings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsToResponse(st))
}

// handleUpdateSettings persists a settings patch. Out-of-range numeric
// values clamp; an unparseable base event id is rejected. The response
// carries the effective values.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	st, err := s.station.UpdateSettings(r.Context(), station.SettingsPatch{
		AutoApplyEnabled:   req.AutoApplyEnabled,
		AutoApplyDuration:  req.AutoApplyDurationSeconds,
		DisplayIdleTimeout: req.DisplayIdleTimeoutSeconds,
		BaseEventID:        req.BaseEventID,
	})
	if err != nil {
		if errors.Is(err, station.ErrInvalidSetting) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsToResponse(st))
}
