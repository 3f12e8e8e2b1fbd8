package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lumen-station/internal/lcc"
	"github.com/nerrad567/lumen-station/internal/lighting"
	"github.com/nerrad567/lumen-station/internal/scene"
	"github.com/nerrad567/lumen-station/internal/station"
)

// maxQueryParamLen limits URL parameter length to prevent DoS via
// oversized params.
const maxQueryParamLen = 100

// handleListScenes returns the catalogue in position order.
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.scenes.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list scenes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

// handleGetScene returns a single scene by ID.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	sc, err := s.scenes.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to get scene")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleCreateScene creates a new scene. Position is assigned at the
// end of the catalogue regardless of the request body.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.scenes.Create(r.Context(), &sc); err != nil {
		if errors.Is(err, scene.ErrInvalidName) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, scene.ErrSceneExists) {
			writeConflict(w, err.Error())
			return
		}
		writeInternalError(w, "failed to create scene")
		return
	}

	writeJSON(w, http.StatusCreated, sc)
}

// handleUpdateScene partially updates a scene. Position is not
// updatable here; use reorder.
func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	existing, err := s.scenes.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to get scene")
		return
	}

	// Decode partial update onto the existing scene
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // ID cannot be changed

	if err := s.scenes.Update(r.Context(), existing); err != nil {
		if errors.Is(err, scene.ErrInvalidName) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, scene.ErrSceneExists) {
			writeConflict(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update scene")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteScene removes a scene by ID.
func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	if err := s.scenes.Delete(r.Context(), id); err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to delete scene")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activateRequest is the optional body for POST /scenes/{id}/activate.
type activateRequest struct {
	// DurationSeconds overrides the persisted auto-apply duration.
	DurationSeconds *int `json:"duration_seconds"`
}

// handleActivateScene starts a fade to the scene's channels. The fade
// runs asynchronously; progress arrives via WebSocket or GET
// /fade/progress.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	var req activateRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	var duration *time.Duration
	if req.DurationSeconds != nil {
		if *req.DurationSeconds < 0 {
			writeBadRequest(w, "duration_seconds must not be negative")
			return
		}
		d := time.Duration(*req.DurationSeconds) * time.Second
		duration = &d
	}

	sc, err := s.station.ActivateScene(r.Context(), id, duration)
	if err != nil {
		switch {
		case errors.Is(err, scene.ErrSceneNotFound):
			writeNotFound(w, "scene not found")
		case errors.Is(err, station.ErrNotRunning), errors.Is(err, lcc.ErrNotReady):
			writeUnavailable(w, "station cannot transmit")
		case errors.Is(err, lighting.ErrInvalidRequest):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to activate scene")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"scene":  sc,
		"status": "accepted",
	})
}

// reorderRequest is the body for PUT /scenes/reorder.
type reorderRequest struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// handleReorderScene moves a scene to a new catalogue position and
// returns the renumbered catalogue.
func (s *Server) handleReorderScene(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" || len(req.ID) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	if err := s.scenes.Reorder(r.Context(), req.ID, req.Position); err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to reorder scene")
		return
	}

	scenes, err := s.scenes.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list scenes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}
