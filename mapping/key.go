package mapping

import (
	"fmt"
	"reflect"

	"cloud.google.com/go/spanner"
)

// KeyOf returns the primary key of v, a value or pointer of the entity type,
// with parts in key order.
func (e *PersistentEntity) KeyOf(v any) (spanner.Key, error) {
	rv, err := e.structValue(v)
	if err != nil {
		return nil, err
	}
	if len(e.primaryKey) == 0 {
		return nil, &MappingError{Entity: e.Name(), Err: fmt.Errorf("no primary key declared")}
	}

	key := make(spanner.Key, len(e.primaryKey))
	for i, p := range e.primaryKey {
		key[i] = rv.FieldByIndex(p.Index()).Interface()
	}
	return key, nil
}

// ColumnValues returns the mapped column values of v keyed by column name.
func (e *PersistentEntity) ColumnValues(v any) (map[string]any, error) {
	rv, err := e.structValue(v)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(e.columns))
	for _, column := range e.columns {
		p := e.byColumn[column]
		values[column] = rv.FieldByIndex(p.Index()).Interface()
	}
	return values, nil
}

// InsertOrUpdate returns a mutation writing every mapped column of v.
func (e *PersistentEntity) InsertOrUpdate(v any) (*spanner.Mutation, error) {
	values, err := e.ColumnValues(v)
	if err != nil {
		return nil, err
	}
	return spanner.InsertOrUpdateMap(e.tableName, values), nil
}

// Delete returns a mutation deleting the row of v.
func (e *PersistentEntity) Delete(v any) (*spanner.Mutation, error) {
	key, err := e.KeyOf(v)
	if err != nil {
		return nil, err
	}
	return spanner.Delete(e.tableName, key), nil
}

// GenerateKeys fills zero-valued primary key fields of v that declare a
// generator. v must be a pointer to the entity type.
func (e *PersistentEntity) GenerateKeys(v any) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("GenerateKeys expects *%s, got %T", e.Name(), v)
	}
	rv, err := e.structValue(v)
	if err != nil {
		return err
	}

	for _, p := range e.primaryKey {
		if p.generator == nil {
			continue
		}
		field := rv.FieldByIndex(p.Index())
		if !field.IsZero() {
			continue
		}

		id, err := p.generator.Generate()
		if err != nil {
			return fmt.Errorf("generate key for %s: %w", p, err)
		}

		idVal := reflect.ValueOf(id)
		if !idVal.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("generator %s produces %s, cannot assign to %s (%s)",
				p.generator.Type(), idVal.Type(), p, field.Type())
		}
		field.Set(idVal.Convert(field.Type()))
	}
	return nil
}

func (e *PersistentEntity) structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %T for entity %s", v, e.Name())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != e.typ {
		return reflect.Value{}, fmt.Errorf("expected %s, got %T", e.typ, v)
	}
	return rv, nil
}
