package mapping

import (
	"errors"
	"fmt"
)

// ErrNotStruct is returned when a model type does not resolve to a struct.
var ErrNotStruct = errors.New("model is not a struct")

// MappingError reports metadata that cannot be mapped to a Spanner table.
// Entity construction aborts on the first MappingError.
type MappingError struct {
	Entity   string // Go type name of the entity
	Property string // Go field name, empty for entity-level errors
	Err      error
}

func (e *MappingError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("mapping %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("mapping %s.%s: %v", e.Entity, e.Property, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
