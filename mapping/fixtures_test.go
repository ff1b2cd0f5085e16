package mapping

import (
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// Test Data Structures
// =========================================================================

type Singer struct {
	SingerID   string   `spanner:"column:SingerId;pk:1;generator:uuid"`
	FirstName  string
	LastName   string   `spanner:"LAST_NAME"`
	UserID     int64    `spanner:"column:USER_ID"`
	Tags       []string `spanner:"inner:STRING"`
	Albums     []*Album
	Address    Address `spanner:"not_mapped"`
	BirthDate  spanner.NullDate
	Scratch    string `spanner:"-"`
	SignedUpAt time.Time
	secret     string
}

func (Singer) TableName() string { return "Singers" }

type Album struct {
	SingerID string `spanner:"pk:1"`
	AlbumID  int64  `spanner:"pk:2"`
	Title    string
	Tracks   map[string]Track `spanner:"not_mapped"`
	Singer   *Singer          `spanner:"not_mapped"`
}

// TableName is empty so the table naming strategy applies.
func (*Album) TableName() string { return "" }

type Track struct {
	Name     string
	Duration int64
}

type Address struct {
	Street string
	City   string
}

type Concert struct {
	VenueID   string    `spanner:"pk:2"`
	SingerID  string    `spanner:"pk:1"`
	StartTime time.Time `spanner:"pk:3"`
	Notes     []any
}

// newTestProperty builds a descriptor for one field outside a context.
func newTestProperty(t *testing.T, model any, field string, strategy FieldNamingStrategy, a Annotations) *PersistentProperty {
	t.Helper()

	typ := reflect.TypeOf(model)
	f, ok := typ.FieldByName(field)
	require.True(t, ok, "field %s not found", field)

	owner := &PersistentEntity{ctx: New(), typ: typ}
	return newPersistentProperty(f, owner, NewSimpleTypes(), strategy, a)
}
