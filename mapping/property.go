package mapping

import (
	"fmt"
	"iter"
	"reflect"
	"strings"
)

// PersistentProperty is one exported field of an entity stored in a Spanner
// table. It answers column metadata queries from the field's annotations and
// the context's naming strategy. It is immutable after construction and safe
// for concurrent use.
type PersistentProperty struct {
	field          reflect.StructField
	owner          *PersistentEntity
	simpleTypes    *SimpleTypes
	namingStrategy FieldNamingStrategy
	annotations    Annotations
	generator      IDGenerator
}

// Association links a property to the other side of a relationship.
// Spanner properties never have an obverse side.
type Association struct {
	Inverse *PersistentProperty
	Obverse *PersistentProperty
}

// newPersistentProperty creates the descriptor for field. A nil
// namingStrategy falls back to PropertyNameStrategy.
func newPersistentProperty(
	field reflect.StructField,
	owner *PersistentEntity,
	simpleTypes *SimpleTypes,
	namingStrategy FieldNamingStrategy,
	annotations Annotations,
) *PersistentProperty {
	if namingStrategy == nil {
		namingStrategy = PropertyNameStrategy{}
	}
	return &PersistentProperty{
		field:          field,
		owner:          owner,
		simpleTypes:    simpleTypes,
		namingStrategy: namingStrategy,
		annotations:    annotations,
	}
}

// Name returns the Go field name.
func (p *PersistentProperty) Name() string {
	return p.field.Name
}

// Type returns the declared Go type of the field.
func (p *PersistentProperty) Type() reflect.Type {
	return p.field.Type
}

// Field returns the underlying struct field.
func (p *PersistentProperty) Field() reflect.StructField {
	return p.field
}

// Index returns the field index path for reflect.Value.FieldByIndex.
func (p *PersistentProperty) Index() []int {
	return p.field.Index
}

// Owner returns the entity declaring this property.
func (p *PersistentProperty) Owner() *PersistentEntity {
	return p.owner
}

// Annotations returns the markers declared on the field.
func (p *PersistentProperty) Annotations() Annotations {
	return p.annotations
}

// Generator returns the key generator for the field, or nil.
func (p *PersistentProperty) Generator() IDGenerator {
	return p.generator
}

func (p *PersistentProperty) String() string {
	if p.owner == nil {
		return p.field.Name
	}
	return p.owner.Name() + "." + p.field.Name
}

// ColumnName returns the Spanner column mapped to this property.
//
// A non-blank explicit column name wins. Otherwise the naming strategy
// derives the name; a blank derived name is a *MappingError naming the
// property and the strategy type.
func (p *PersistentProperty) ColumnName() (string, error) {
	if strings.TrimSpace(p.annotations.Column) != "" {
		return p.annotations.Column, nil
	}

	fieldName := p.namingStrategy.FieldName(p)
	if strings.TrimSpace(fieldName) == "" {
		return "", &MappingError{
			Entity:   p.ownerName(),
			Property: p.field.Name,
			Err: fmt.Errorf("invalid (empty) field name returned for property %s by %T",
				p, p.namingStrategy),
		}
	}

	return fieldName, nil
}

// ColumnInnerType returns the declared element type of an ARRAY column, or
// nil when none is declared.
func (p *PersistentProperty) ColumnInnerType() reflect.Type {
	return p.annotations.InnerType
}

// PrimaryKeyOrder returns the 1-based primary key position of the property.
// ok is false when the property is not a key part.
func (p *PersistentProperty) PrimaryKeyOrder() (order int, ok bool) {
	if !p.annotations.PrimaryKey {
		return 0, false
	}
	return p.annotations.KeyOrder, true
}

// IsMapped reports whether the property is persisted.
func (p *PersistentProperty) IsMapped() bool {
	return !p.annotations.NotMapped
}

// IsIDProperty is always false: Spanner keys are declared per column with
// a key order, never as a single identifier property.
func (p *PersistentProperty) IsIDProperty() bool {
	return false
}

// Association returns a self association without an obverse side.
func (p *PersistentProperty) Association() Association {
	return Association{Inverse: p}
}

// PersistentEntityTypes yields the nested table types of the property.
// The candidate is the declared type with pointers, slices, arrays and map
// values unwrapped; it is yielded only if it is composite and carries the
// table marker. The sequence is recomputed on each iteration.
func (p *PersistentProperty) PersistentEntityTypes() iter.Seq[reflect.Type] {
	return func(yield func(reflect.Type) bool) {
		t := p.actualType()
		if t.Kind() != reflect.Struct || p.simpleTypes.IsSimple(t) {
			return
		}
		if !p.isTable(t) {
			return
		}
		yield(t)
	}
}

func (p *PersistentProperty) isNested() bool {
	for range p.PersistentEntityTypes() {
		return true
	}
	return false
}

// actualType unwraps containers down to the element type. An interface
// element resolves to the declared inner type when there is one, which is
// unwrapped in turn.
func (p *PersistentProperty) actualType() reflect.Type {
	t := p.field.Type
	inner := p.annotations.InnerType
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Map:
			t = t.Elem()
		case reflect.Slice, reflect.Array:
			if p.simpleTypes.IsSimple(t) {
				return t
			}
			t = t.Elem()
		case reflect.Interface:
			if inner == nil {
				return t
			}
			t, inner = inner, nil
		default:
			return t
		}
	}
}

// element dereferences t and substitutes the inner type for an interface.
func (p *PersistentProperty) element(t reflect.Type) reflect.Type {
	t = indirectType(t)
	if t.Kind() == reflect.Interface && p.annotations.InnerType != nil {
		t = indirectType(p.annotations.InnerType)
	}
	return t
}

// isColumnType reports whether the property fits a single Spanner column:
// a simple type or an ARRAY of simple elements.
func (p *PersistentProperty) isColumnType() bool {
	t := p.element(p.field.Type)
	if p.simpleTypes.IsSimple(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return p.simpleTypes.IsSimple(p.element(t.Elem()))
	}
	return false
}

func (p *PersistentProperty) isTable(t reflect.Type) bool {
	if p.owner != nil && p.owner.ctx != nil {
		return p.owner.ctx.IsTable(t)
	}
	return implementsTable(t)
}

func (p *PersistentProperty) ownerName() string {
	if p.owner == nil {
		return ""
	}
	return p.owner.Name()
}
