// Package sentinel holds the infrastructure facts stores report. Services translate
// them into domain errors; request validation uses pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the store holds no row for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a create hit an existing key.
	ErrConflict = errors.New("conflict")
)
