package middleware

import (
	"fmt"
	"regexp"
)

// Input validation for values arriving from the API layer.

var (
	containerIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	modelNamePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:/-]*$`)
)

const maxNotesLen = 4000

// ValidateContainerID rejects anything that is not a docker ID or name.
func ValidateContainerID(id string) error {
	if id == "" {
		return fmt.Errorf("container id cannot be empty")
	}
	if len(id) > 255 || !containerIDPattern.MatchString(id) {
		return fmt.Errorf("invalid container id: %s", id)
	}
	return nil
}

// ValidateModelName checks a model identifier like "phi3" or "llama3:8b".
func ValidateModelName(model string) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if len(model) > 128 || !modelNamePattern.MatchString(model) {
		return fmt.Errorf("invalid model name: %s", model)
	}
	return nil
}

// ValidateNotes bounds operator resolution notes.
func ValidateNotes(notes string) error {
	if len(notes) > maxNotesLen {
		return fmt.Errorf("notes too long (max %d characters)", maxNotesLen)
	}
	return nil
}
