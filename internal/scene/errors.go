package scene

import "errors"

// Domain errors for the scene package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, scene.ErrSceneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSceneNotFound is returned when a scene ID or catalog index does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrSceneExists is returned when a scene name is already taken.
	ErrSceneExists = errors.New("scene: already exists")

	// ErrInvalidName is returned when a scene name is empty or too long.
	ErrInvalidName = errors.New("scene: invalid name")
)
