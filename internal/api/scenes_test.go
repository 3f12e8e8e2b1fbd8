package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nerrad567/lumen-station/internal/lcc"
	"github.com/nerrad567/lumen-station/internal/scene"
)

// createScene posts a scene and returns the created record.
func createScene(t *testing.T, srv *Server, name string, body string) scene.Scene {
	t.Helper()

	if body == "" {
		body = `{"name":"` + name + `","channels":{"red":255,"green":200,"blue":150,"brightness":100}}`
	}
	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q status = %d: %s", name, w.Code, w.Body.String())
	}

	var sc scene.Scene
	if err := json.Unmarshal(w.Body.Bytes(), &sc); err != nil {
		t.Fatalf("unmarshal created scene: %v", err)
	}
	return sc
}

// listScenes fetches the catalogue in position order.
func listScenes(t *testing.T, srv *Server) []scene.Scene {
	t.Helper()

	w := doRequest(t, srv, http.MethodGet, "/api/v1/scenes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	var resp struct {
		Scenes []scene.Scene `json:"scenes"`
		Count  int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if resp.Count != len(resp.Scenes) {
		t.Errorf("count = %d, scenes = %d", resp.Count, len(resp.Scenes))
	}
	return resp.Scenes
}

// ─── Scene CRUD Tests ──────────────────────────────────────────────

func TestScenesList_Empty(t *testing.T) {
	srv, _ := testServer(t)

	if scenes := listScenes(t, srv); len(scenes) != 0 {
		t.Errorf("fresh catalogue has %d scenes, want 0", len(scenes))
	}
}

func TestSceneCreate(t *testing.T) {
	srv, _ := testServer(t)

	first := createScene(t, srv, "Sunset", "")
	if first.ID == "" {
		t.Error("created scene has no ID")
	}
	if first.Position != 0 {
		t.Errorf("first position = %d, want 0", first.Position)
	}
	if first.Channels.Red != 255 || first.Channels.Brightness != 100 {
		t.Errorf("channels = %+v", first.Channels)
	}

	second := createScene(t, srv, "Night", `{"name":"Night","channels":{"blue":40,"brightness":10}}`)
	if second.Position != 1 {
		t.Errorf("second position = %d, want 1", second.Position)
	}

	scenes := listScenes(t, srv)
	if len(scenes) != 2 || scenes[0].Name != "Sunset" || scenes[1].Name != "Night" {
		t.Errorf("catalogue = %+v", scenes)
	}
}

func TestSceneCreate_Invalid(t *testing.T) {
	srv, _ := testServer(t)
	createScene(t, srv, "Taken", "")

	tests := map[string]struct {
		body string
		want int
	}{
		"malformed JSON": {`{"name":`, http.StatusBadRequest},
		"empty name":     {`{"name":""}`, http.StatusBadRequest},
		"duplicate name": {`{"name":"Taken"}`, http.StatusConflict},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestSceneGet(t *testing.T) {
	srv, _ := testServer(t)
	created := createScene(t, srv, "Reading", "")

	w := doRequest(t, srv, http.MethodGet, "/api/v1/scenes/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	var got scene.Scene
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != created.ID || got.Name != "Reading" {
		t.Errorf("got = %+v", got)
	}
}

func TestSceneGet_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/scenes/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSceneUpdate(t *testing.T) {
	srv, _ := testServer(t)
	created := createScene(t, srv, "Original", "")

	w := doRequest(t, srv, http.MethodPatch, "/api/v1/scenes/"+created.ID, `{"name":"Renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	var got scene.Scene
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}
	// Partial update must not clear channels.
	if got.Channels.Red != 255 || got.Channels.Brightness != 100 {
		t.Errorf("channels lost on partial update: %+v", got.Channels)
	}
}

func TestSceneUpdate_Errors(t *testing.T) {
	srv, _ := testServer(t)
	createScene(t, srv, "Holder", "")
	target := createScene(t, srv, "Target", `{"name":"Target","channels":{"white":80}}`)

	t.Run("not found", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPatch, "/api/v1/scenes/missing", `{"name":"X"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("name collision", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPatch, "/api/v1/scenes/"+target.ID, `{"name":"Holder"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPatch, "/api/v1/scenes/"+target.ID, `{"name":"  "}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestSceneDelete(t *testing.T) {
	srv, _ := testServer(t)
	created := createScene(t, srv, "Ephemeral", "")

	w := doRequest(t, srv, http.MethodDelete, "/api/v1/scenes/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	if w := doRequest(t, srv, http.MethodDelete, "/api/v1/scenes/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if scenes := listScenes(t, srv); len(scenes) != 0 {
		t.Errorf("catalogue not empty after delete: %+v", scenes)
	}
}

// ─── Reorder Tests ─────────────────────────────────────────────────

func TestSceneReorder(t *testing.T) {
	srv, _ := testServer(t)
	createScene(t, srv, "A", `{"name":"A"}`)
	createScene(t, srv, "B", `{"name":"B"}`)
	c := createScene(t, srv, "C", `{"name":"C"}`)

	body := `{"id":"` + c.ID + `","position":0}`
	w := doRequest(t, srv, http.MethodPut, "/api/v1/scenes/reorder", body)
	if w.Code != http.StatusOK {
		t.Fatalf("reorder status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Scenes []scene.Scene `json:"scenes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantOrder := []string{"C", "A", "B"}
	for i, want := range wantOrder {
		if resp.Scenes[i].Name != want {
			t.Errorf("position %d = %q, want %q", i, resp.Scenes[i].Name, want)
		}
		if resp.Scenes[i].Position != i {
			t.Errorf("scene %q position = %d, want %d", resp.Scenes[i].Name, resp.Scenes[i].Position, i)
		}
	}
}

func TestSceneReorder_Errors(t *testing.T) {
	srv, _ := testServer(t)

	t.Run("unknown id", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPut, "/api/v1/scenes/reorder", `{"id":"missing","position":0}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPut, "/api/v1/scenes/reorder", `{"id":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// ─── Activation Tests ──────────────────────────────────────────────

func TestSceneActivate(t *testing.T) {
	srv, fake := testServer(t)
	created := createScene(t, srv, "Evening", "")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes/"+created.ID+"/activate", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("activate status = %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["status"] != "accepted" {
		t.Errorf("status = %v, want accepted", resp["status"])
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.activated) != 1 || fake.activated[0] != created.ID {
		t.Fatalf("activated = %v, want [%s]", fake.activated, created.ID)
	}
	if fake.durations[0] != nil {
		t.Errorf("duration = %v, want nil (station default)", fake.durations[0])
	}
}

func TestSceneActivate_DurationOverride(t *testing.T) {
	srv, fake := testServer(t)
	created := createScene(t, srv, "Quick", "")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes/"+created.ID+"/activate", `{"duration_seconds":3}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("activate status = %d: %s", w.Code, w.Body.String())
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.durations[0] == nil || *fake.durations[0] != 3*time.Second {
		t.Errorf("duration = %v, want 3s", fake.durations[0])
	}
}

func TestSceneActivate_NegativeDuration(t *testing.T) {
	srv, fake := testServer(t)
	created := createScene(t, srv, "Strict", "")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes/"+created.ID+"/activate", `{"duration_seconds":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.activated) != 0 {
		t.Errorf("activation recorded despite invalid duration")
	}
}

func TestSceneActivate_StationErrors(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"scene missing":     {scene.ErrSceneNotFound, http.StatusNotFound},
		"transport offline": {lcc.ErrNotReady, http.StatusServiceUnavailable},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv, fake := testServer(t)
			fake.set(func(f *fakeStation) { f.activateErr = tt.err })

			w := doRequest(t, srv, http.MethodPost, "/api/v1/scenes/any-id/activate", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
