package mapping

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// PersistentEntity is the mapping metadata of one struct type stored in a
// Spanner table. It owns its properties and is immutable once built.
type PersistentEntity struct {
	ctx        *Context
	typ        reflect.Type
	tableName  string
	properties []*PersistentProperty
	byName     map[string]*PersistentProperty // Go field name -> property
	byColumn   map[string]*PersistentProperty // column name -> mapped property
	columns    []string                       // mapped column names in field order
	nested     []*PersistentProperty          // mapped properties holding table types
	primaryKey []*PersistentProperty          // ordered by key order
}

// buildEntity introspects t, which must be a struct type. Unexported and
// embedded fields are skipped. Any property whose column cannot be resolved
// aborts construction.
func buildEntity(c *Context, t reflect.Type) (*PersistentEntity, error) {
	numFields := t.NumField()

	e := &PersistentEntity{
		ctx:        c,
		typ:        t,
		properties: make([]*PersistentProperty, 0, numFields),
		byName:     make(map[string]*PersistentProperty, numFields),
		byColumn:   make(map[string]*PersistentProperty, numFields),
		columns:    make([]string, 0, numFields),
	}

	e.tableName = declaredTableName(t)
	if e.tableName == "" {
		e.tableName = c.tableNaming.TableName(t.Name())
	}
	if e.tableName == "" {
		return nil, &MappingError{Entity: t.Name(), Err: errors.New("empty table name")}
	}

	for i := 0; i < numFields; i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}

		annotations, err := c.annotationsFor(t, f)
		if err != nil {
			return nil, &MappingError{Entity: t.Name(), Property: f.Name, Err: err}
		}

		p := newPersistentProperty(f, e, c.simpleTypes, c.fieldNaming, annotations)

		if annotations.Generator != "" {
			gen, ok := c.generators.Get(annotations.Generator)
			if !ok {
				return nil, &MappingError{
					Entity:   t.Name(),
					Property: f.Name,
					Err:      fmt.Errorf("unknown generator type: %s", annotations.Generator),
				}
			}
			p.generator = gen
		}

		column, err := p.ColumnName()
		if err != nil {
			return nil, err
		}

		e.properties = append(e.properties, p)
		e.byName[f.Name] = p

		_, isKey := p.PrimaryKeyOrder()
		if !p.IsMapped() {
			if isKey {
				return nil, &MappingError{
					Entity:   t.Name(),
					Property: f.Name,
					Err:      errors.New("primary key part cannot be not mapped"),
				}
			}
			continue
		}

		if p.isNested() {
			if isKey {
				return nil, &MappingError{
					Entity:   t.Name(),
					Property: f.Name,
					Err:      errors.New("primary key part cannot hold nested entities"),
				}
			}
			e.nested = append(e.nested, p)
			continue
		}
		if !p.isColumnType() {
			return nil, &MappingError{
				Entity:   t.Name(),
				Property: f.Name,
				Err: fmt.Errorf("type %s has no Spanner column type; register it with WithSimpleTypes or mark it not_mapped",
					f.Type),
			}
		}

		if other, dup := e.byColumn[column]; dup {
			return nil, &MappingError{
				Entity:   t.Name(),
				Property: f.Name,
				Err:      fmt.Errorf("column %s is already mapped by %s", column, other.Name()),
			}
		}
		e.byColumn[column] = p
		e.columns = append(e.columns, column)

		if isKey {
			e.primaryKey = append(e.primaryKey, p)
		}
	}

	if err := e.sortPrimaryKey(); err != nil {
		return nil, err
	}

	return e, nil
}

// sortPrimaryKey orders key parts and checks the orders run 1..n without
// duplicates.
func (e *PersistentEntity) sortPrimaryKey() error {
	slices.SortStableFunc(e.primaryKey, func(a, b *PersistentProperty) int {
		return a.annotations.KeyOrder - b.annotations.KeyOrder
	})

	for i, p := range e.primaryKey {
		order, _ := p.PrimaryKeyOrder()
		if i > 0 {
			if prev, _ := e.primaryKey[i-1].PrimaryKeyOrder(); prev == order {
				return &MappingError{
					Entity:   e.Name(),
					Property: p.Name(),
					Err: fmt.Errorf("primary key order %d is already used by %s",
						order, e.primaryKey[i-1].Name()),
				}
			}
		}
		if order != i+1 {
			return &MappingError{
				Entity:   e.Name(),
				Property: p.Name(),
				Err: fmt.Errorf("primary key order %d leaves a gap: expected %d",
					order, i+1),
			}
		}
	}
	return nil
}

// Name returns the Go type name.
func (e *PersistentEntity) Name() string {
	return e.typ.Name()
}

// Type returns the struct type.
func (e *PersistentEntity) Type() reflect.Type {
	return e.typ
}

// TableName returns the Spanner table name.
func (e *PersistentEntity) TableName() string {
	return e.tableName
}

// Properties returns all properties in field order, including not-mapped
// ones.
func (e *PersistentEntity) Properties() []*PersistentProperty {
	return slices.Clone(e.properties)
}

// MappedProperties returns the persisted properties in field order, column
// and nested alike.
func (e *PersistentEntity) MappedProperties() []*PersistentProperty {
	mapped := make([]*PersistentProperty, 0, len(e.columns)+len(e.nested))
	for _, p := range e.properties {
		if p.IsMapped() {
			mapped = append(mapped, p)
		}
	}
	return mapped
}

// Property returns the property of the named Go field.
func (e *PersistentEntity) Property(name string) (*PersistentProperty, bool) {
	p, ok := e.byName[name]
	return p, ok
}

// PropertyByColumn returns the mapped property stored in column.
func (e *PersistentEntity) PropertyByColumn(column string) (*PersistentProperty, bool) {
	p, ok := e.byColumn[column]
	return p, ok
}

// ColumnNames returns the mapped column names in field order. Properties
// holding nested entities are stored in their own tables and have no column
// here.
func (e *PersistentEntity) ColumnNames() []string {
	return slices.Clone(e.columns)
}

// NestedProperties returns the mapped properties that hold nested entities.
func (e *PersistentEntity) NestedProperties() []*PersistentProperty {
	return slices.Clone(e.nested)
}

// PrimaryKeyProperties returns the key parts ordered by key order.
func (e *PersistentEntity) PrimaryKeyProperties() []*PersistentProperty {
	return slices.Clone(e.primaryKey)
}

// PrimaryKeyColumns returns the key column names ordered by key order.
func (e *PersistentEntity) PrimaryKeyColumns() []string {
	cols := make([]string, len(e.primaryKey))
	for i, p := range e.primaryKey {
		// Resolved successfully during construction.
		cols[i], _ = p.ColumnName()
	}
	return cols
}

// NestedEntities resolves the table types reachable from the properties,
// each at most once, in field order. Nested entities are built on demand,
// so cyclic type graphs are fine.
func (e *PersistentEntity) NestedEntities() ([]*PersistentEntity, error) {
	var (
		seen   = make(map[reflect.Type]struct{})
		nested []*PersistentEntity
	)
	for _, p := range e.properties {
		for t := range p.PersistentEntityTypes() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}

			ne, err := e.ctx.EntityOf(t)
			if err != nil {
				return nil, fmt.Errorf("nested entity of %s: %w", p, err)
			}
			nested = append(nested, ne)
		}
	}
	return nested, nil
}
