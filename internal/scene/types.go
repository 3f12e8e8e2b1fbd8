package scene

import (
	"time"

	"github.com/nerrad567/lumen-station/internal/lighting"
)

// Scene is a named lighting preset in the station catalog.
//
// Position determines catalog order and is owned by the repository:
// appended on create, renumbered on reorder. Update never moves a scene.
type Scene struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Channels lighting.LightingState `json:"channels"`
	Position int                    `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultScene returns the preset seeded into an empty catalog.
func DefaultScene() Scene {
	return Scene{
		Name: "Warm White",
		Channels: lighting.LightingState{
			Red:        255,
			Green:      200,
			Blue:       150,
			White:      0,
			Brightness: 100,
		},
	}
}
