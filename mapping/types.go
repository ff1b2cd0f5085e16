package mapping

import (
	"math/big"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
)

// Table marks a struct type as a Spanner table row. Implement it on the
// struct or its pointer; the returned name overrides the table naming
// strategy when non-empty.
type Table interface {
	TableName() string
}

var tableType = reflect.TypeOf((*Table)(nil)).Elem()

// implementsTable reports whether t or *t carries the table marker.
func implementsTable(t reflect.Type) bool {
	if t.Implements(tableType) {
		return true
	}
	return t.Kind() != reflect.Ptr && reflect.PointerTo(t).Implements(tableType)
}

// declaredTableName returns the name from a Table implementation, if any.
func declaredTableName(t reflect.Type) string {
	if tn, ok := reflect.New(t).Interface().(Table); ok {
		return tn.TableName()
	}
	return ""
}

// Inner types accepted by the inner: tag option. Both Spanner type names and
// Go spellings resolve; Context.RegisterType adds more.
var builtinInnerTypes = map[string]reflect.Type{
	"STRING":    reflect.TypeOf(""),
	"INT64":     reflect.TypeOf(int64(0)),
	"FLOAT64":   reflect.TypeOf(float64(0)),
	"BOOL":      reflect.TypeOf(false),
	"BYTES":     reflect.TypeOf([]byte(nil)),
	"TIMESTAMP": reflect.TypeOf(time.Time{}),
	"DATE":      reflect.TypeOf(civil.Date{}),
	"NUMERIC":   reflect.TypeOf(big.Rat{}),
	"JSON":      reflect.TypeOf(spanner.NullJSON{}),

	"string":     reflect.TypeOf(""),
	"int64":      reflect.TypeOf(int64(0)),
	"float64":    reflect.TypeOf(float64(0)),
	"bool":       reflect.TypeOf(false),
	"[]byte":     reflect.TypeOf([]byte(nil)),
	"time.Time":  reflect.TypeOf(time.Time{}),
	"civil.Date": reflect.TypeOf(civil.Date{}),
	"big.Rat":    reflect.TypeOf(big.Rat{}),
}
