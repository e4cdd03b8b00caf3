package memory

import "errors"

var (
	// ErrValidation indicates bad caller input: missing child id, empty
	// text, unknown enum value.
	ErrValidation = errors.New("memory: validation failed")

	// ErrNotFound indicates the referenced child or entity does not exist.
	ErrNotFound = errors.New("memory: not found")
)
