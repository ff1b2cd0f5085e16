package mapping

import (
	"math/big"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
)

// SimpleTypes classifies Go types as simple (stored as a single Spanner
// column value) or composite. Composite struct types are candidates for
// nested entities.
type SimpleTypes struct {
	types map[reflect.Type]struct{}
}

var defaultSimpleTypes = []reflect.Type{
	reflect.TypeOf([]byte(nil)),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(civil.Date{}),
	reflect.TypeOf(big.Rat{}),
	reflect.TypeOf(spanner.NullString{}),
	reflect.TypeOf(spanner.NullInt64{}),
	reflect.TypeOf(spanner.NullFloat64{}),
	reflect.TypeOf(spanner.NullBool{}),
	reflect.TypeOf(spanner.NullTime{}),
	reflect.TypeOf(spanner.NullDate{}),
	reflect.TypeOf(spanner.NullNumeric{}),
	reflect.TypeOf(spanner.NullJSON{}),
	reflect.TypeOf(spanner.GenericColumnValue{}),
}

// NewSimpleTypes returns the default Spanner simple types plus extra.
func NewSimpleTypes(extra ...reflect.Type) *SimpleTypes {
	s := &SimpleTypes{types: make(map[reflect.Type]struct{}, len(defaultSimpleTypes)+len(extra))}
	for _, t := range defaultSimpleTypes {
		s.types[t] = struct{}{}
	}
	for _, t := range extra {
		s.types[t] = struct{}{}
	}
	return s
}

// IsSimple reports whether t maps onto a single column value. Pointers are
// classified by their element type.
func (s *SimpleTypes) IsSimple(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := s.types[t]; ok {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String, reflect.Interface:
		return true
	}
	return false
}
