package scene

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxNameLength caps scene names; the catalog UI truncates beyond this anyway.
const maxNameLength = 100

// ValidateName checks that a scene name is non-empty and within length bounds.
// Channel values need no validation: they are uint8 by construction.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID creates a new UUID for a scene.
func GenerateID() string {
	return uuid.New().String()
}
