package mapping

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
)

type Money struct {
	Units int64
	Nanos int32
}

func TestSimpleTypes(t *testing.T) {
	simple := NewSimpleTypes()

	tests := []struct {
		name     string
		typ      reflect.Type
		expected bool
	}{
		{"String", reflect.TypeOf(""), true},
		{"Int64Ptr", reflect.TypeOf(new(int64)), true},
		{"Bytes", reflect.TypeOf([]byte(nil)), true},
		{"Time", reflect.TypeOf(time.Time{}), true},
		{"Date", reflect.TypeOf(civil.Date{}), true},
		{"Numeric", reflect.TypeOf(big.Rat{}), true},
		{"NullString", reflect.TypeOf(spanner.NullString{}), true},
		{"NullJSON", reflect.TypeOf(spanner.NullJSON{}), true},
		{"Interface", reflect.TypeOf((*any)(nil)).Elem(), true},
		{"StringSlice", reflect.TypeOf([]string(nil)), false},
		{"Struct", reflect.TypeOf(Address{}), false},
		{"Map", reflect.TypeOf(map[string]int64(nil)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, simple.IsSimple(tt.typ))
		})
	}
}

func TestCustomSimpleTypes(t *testing.T) {
	moneyType := reflect.TypeOf(Money{})
	assert.False(t, NewSimpleTypes().IsSimple(moneyType))
	assert.True(t, NewSimpleTypes(moneyType).IsSimple(moneyType))

	type Invoice struct {
		Total  Money
		Amount *Money
	}

	ctx := New(WithSimpleTypes(moneyType))
	ctx.RegisterTable(Money{})

	e, err := ctx.Entity(Invoice{})
	if assert.NoError(t, err) {
		for _, p := range e.Properties() {
			for range p.PersistentEntityTypes() {
				t.Errorf("%s: simple types are never nested entities", p)
			}
		}
	}
}
