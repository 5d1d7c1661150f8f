package cop

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when an operation references an entity_id that is
// not present in the store.
var ErrNotFound = eris.New("cop: entity not found")

// ValidationError describes an entity that violates a store invariant.
// Invalid entities are rejected before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cop: invalid entity: %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err (or anything it wraps) is a
// ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return eris.As(err, &ve)
}
