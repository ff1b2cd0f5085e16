package mapping

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// Column Name Resolution
// =========================================================================

func TestColumnName(t *testing.T) {
	constant := FieldNamingFunc(func(*PersistentProperty) string { return "FROM_STRATEGY" })

	tests := []struct {
		name        string
		field       string
		strategy    FieldNamingStrategy
		annotations Annotations
		expected    string
	}{
		{
			name:     "DefaultStrategyUsesFieldName",
			field:    "FirstName",
			strategy: nil,
			expected: "FirstName",
		},
		{
			name:        "ExplicitColumnWinsOverStrategy",
			field:       "UserID",
			strategy:    constant,
			annotations: Annotations{Column: "USER_ID"},
			expected:    "USER_ID",
		},
		{
			name:        "ExplicitColumnReturnedVerbatim",
			field:       "UserID",
			annotations: Annotations{Column: " USER_ID "},
			expected:    " USER_ID ",
		},
		{
			name:        "BlankColumnFallsBackToStrategy",
			field:       "UserID",
			strategy:    constant,
			annotations: Annotations{Column: "   "},
			expected:    "FROM_STRATEGY",
		},
		{
			name:     "CustomStrategy",
			field:    "FirstName",
			strategy: NewCaseNamingStrategy(ColumnSnakeCase),
			expected: "first_name",
		},
		{
			name:        "NotMappedStillResolves",
			field:       "Scratch",
			annotations: Annotations{NotMapped: true},
			expected:    "Scratch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProperty(t, Singer{}, tt.field, tt.strategy, tt.annotations)

			column, err := p.ColumnName()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, column)
		})
	}
}

func TestColumnNameEmptyStrategyResult(t *testing.T) {
	for _, result := range []string{"", "  ", "\t\n"} {
		strategy := FieldNamingFunc(func(*PersistentProperty) string { return result })
		p := newTestProperty(t, Singer{}, "FirstName", strategy, Annotations{})

		column, err := p.ColumnName()
		require.Error(t, err)
		assert.Empty(t, column)

		var mappingErr *MappingError
		require.True(t, errors.As(err, &mappingErr))
		assert.Equal(t, "Singer", mappingErr.Entity)
		assert.Equal(t, "FirstName", mappingErr.Property)
		assert.Contains(t, err.Error(), "Singer.FirstName")
		assert.Contains(t, err.Error(), "mapping.FieldNamingFunc")
	}
}

func TestColumnNameIsNotCached(t *testing.T) {
	calls := 0
	strategy := FieldNamingFunc(func(p *PersistentProperty) string {
		calls++
		return p.Name()
	})
	p := newTestProperty(t, Singer{}, "FirstName", strategy, Annotations{})

	for range 3 {
		column, err := p.ColumnName()
		require.NoError(t, err)
		assert.Equal(t, "FirstName", column)
	}
	assert.Equal(t, 3, calls)
}

// =========================================================================
// Marker Queries
// =========================================================================

func TestIsMapped(t *testing.T) {
	mapped := newTestProperty(t, Singer{}, "FirstName", nil, Annotations{})
	assert.True(t, mapped.IsMapped())

	excluded := newTestProperty(t, Singer{}, "Scratch", nil, Annotations{NotMapped: true})
	assert.False(t, excluded.IsMapped())
}

func TestPrimaryKeyOrder(t *testing.T) {
	p := newTestProperty(t, Singer{}, "FirstName", nil, Annotations{})
	order, ok := p.PrimaryKeyOrder()
	assert.False(t, ok)
	assert.Zero(t, order)

	p = newTestProperty(t, Singer{}, "SingerID", nil, Annotations{PrimaryKey: true, KeyOrder: 3})
	order, ok = p.PrimaryKeyOrder()
	assert.True(t, ok)
	assert.Equal(t, 3, order)
}

func TestColumnInnerType(t *testing.T) {
	p := newTestProperty(t, Singer{}, "FirstName", nil, Annotations{})
	assert.Nil(t, p.ColumnInnerType())

	stringType := reflect.TypeOf("")
	p = newTestProperty(t, Singer{}, "Tags", nil, Annotations{InnerType: stringType})
	assert.Equal(t, stringType, p.ColumnInnerType())
}

func TestIsIDPropertyAlwaysFalse(t *testing.T) {
	e, err := New().Entity(Singer{})
	require.NoError(t, err)

	for _, p := range e.Properties() {
		assert.False(t, p.IsIDProperty(), p.String())
	}
}

func TestAssociation(t *testing.T) {
	p := newTestProperty(t, Singer{}, "Albums", nil, Annotations{})

	assoc := p.Association()
	assert.Same(t, p, assoc.Inverse)
	assert.Nil(t, assoc.Obverse)
}

// =========================================================================
// Nested Entity Types
// =========================================================================

func TestPersistentEntityTypes(t *testing.T) {
	albumType := reflect.TypeOf(Album{})

	tests := []struct {
		name     string
		field    string
		expected []reflect.Type
	}{
		{name: "SliceOfTablePointers", field: "Albums", expected: []reflect.Type{albumType}},
		{name: "StructWithoutTableMarker", field: "Address"},
		{name: "SimpleType", field: "FirstName"},
		{name: "SpannerNullType", field: "BirthDate"},
		{name: "Time", field: "SignedUpAt"},
		{name: "ArrayOfSimple", field: "Tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProperty(t, Singer{}, tt.field, nil, Annotations{})
			assert.Equal(t, tt.expected, slices.Collect(p.PersistentEntityTypes()))
		})
	}
}

func TestPersistentEntityTypesInnerStringIsNotTable(t *testing.T) {
	p := newTestProperty(t, Singer{}, "Tags", nil, Annotations{InnerType: reflect.TypeOf("")})

	assert.Equal(t, reflect.TypeOf(""), p.ColumnInnerType())
	assert.Empty(t, slices.Collect(p.PersistentEntityTypes()))
}

func TestPersistentEntityTypesIsRestartable(t *testing.T) {
	p := newTestProperty(t, Singer{}, "Albums", nil, Annotations{})
	seq := p.PersistentEntityTypes()

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
}

func TestPersistentEntityTypesReflectsRegisteredTables(t *testing.T) {
	ctx := New()
	e, err := ctx.Entity(Album{})
	require.NoError(t, err)

	tracks, ok := e.Property("Tracks")
	require.True(t, ok)
	assert.Empty(t, slices.Collect(tracks.PersistentEntityTypes()))

	ctx.RegisterTable(Track{})
	assert.Equal(t, []reflect.Type{reflect.TypeOf(Track{})}, slices.Collect(tracks.PersistentEntityTypes()))
}

func TestPersistentEntityTypesInterfaceElementUsesInnerType(t *testing.T) {
	ctx := New()
	ctx.Configure(Concert{}, "Notes", WithInnerType(reflect.TypeOf(Album{})))

	e, err := ctx.Entity(Concert{})
	require.NoError(t, err)

	notes, ok := e.Property("Notes")
	require.True(t, ok)
	assert.Equal(t, []reflect.Type{reflect.TypeOf(Album{})}, slices.Collect(notes.PersistentEntityTypes()))
}

func TestPersistentEntityTypesPointerInnerType(t *testing.T) {
	ctx := New()
	ctx.Configure(Concert{}, "Notes", WithInnerType(reflect.TypeOf(&Album{})))

	e, err := ctx.Entity(Concert{})
	require.NoError(t, err)

	notes, ok := e.Property("Notes")
	require.True(t, ok)
	assert.Equal(t, []reflect.Type{reflect.TypeOf(Album{})}, slices.Collect(notes.PersistentEntityTypes()))

	// An interface inner type resolves once and stops there.
	p := newTestProperty(t, Concert{}, "Notes", nil, Annotations{InnerType: reflect.TypeOf([]any(nil))})
	assert.Empty(t, slices.Collect(p.PersistentEntityTypes()))
}

func TestPropertyString(t *testing.T) {
	p := newTestProperty(t, Singer{}, "FirstName", nil, Annotations{})
	assert.Equal(t, "Singer.FirstName", p.String())
	assert.Equal(t, "FirstName", p.Name())
	assert.Equal(t, reflect.TypeOf(""), p.Type())
}
