package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Annotations holds the mapping markers declared on one struct field.
// The zero value means "no markers": mapped, column name from the naming
// strategy, not part of the primary key, no inner type.
type Annotations struct {
	Column     string       // Explicit column name; blank means not declared
	NotMapped  bool         // Field is not persisted (spanner:"-")
	PrimaryKey bool         // Field is a primary key part
	KeyOrder   int          // 1-based position in the primary key, valid when PrimaryKey is set
	InnerType  reflect.Type // Element type of an ARRAY column
	Generator  string       // Key generator name (uuid, ulid)
}

// TypeResolver resolves inner type names used in tags.
type TypeResolver func(name string) (reflect.Type, bool)

// TagParser parses spanner struct tags into Annotations and caches the
// result per field name and tag value.
type TagParser struct {
	tagName     string
	resolveType TypeResolver
	cache       map[string]Annotations
	cacheMu     sync.RWMutex
}

// NewTagParser creates a parser reading the tagName struct tag. resolveType
// may be nil, in which case only the builtin inner type names are known.
func NewTagParser(tagName string, resolveType TypeResolver) *TagParser {
	if resolveType == nil {
		resolveType = func(name string) (reflect.Type, bool) {
			t, ok := builtinInnerTypes[name]
			return t, ok
		}
	}
	return &TagParser{
		tagName:     tagName,
		resolveType: resolveType,
		cache:       make(map[string]Annotations, 64),
	}
}

// ParseTag parses the parser's tag from a struct field tag.
//
// Supported tag syntax:
//
//	`spanner:"UserId"`                      // Explicit column name
//	`spanner:"column:UserId"`               // Explicit column name
//	`spanner:"-"`                           // Not mapped
//	`spanner:"not_mapped"`                  // Not mapped
//	`spanner:"primary_key:2"`               // Second primary key part (pk:2 also works)
//	`spanner:"primary_key"`                 // First primary key part
//	`spanner:"inner:STRING"`                // ARRAY<STRING> element type
//	`spanner:"column:Id;pk:1;generator:uuid"`
//
// A value without ';' or ':' that is not a known flag is a column name.
func (p *TagParser) ParseTag(fieldName string, tag reflect.StructTag) (Annotations, error) {
	tagValue, ok := tag.Lookup(p.tagName)
	if !ok || tagValue == "" {
		return Annotations{}, nil
	}

	cacheKey := fieldName + ":" + tagValue
	p.cacheMu.RLock()
	if cached, exists := p.cache[cacheKey]; exists {
		p.cacheMu.RUnlock()
		return cached, nil
	}
	p.cacheMu.RUnlock()

	parsed, err := p.parseTagValue(tagValue)
	if err != nil {
		return Annotations{}, fmt.Errorf("field %s: %w", fieldName, err)
	}

	p.cacheMu.Lock()
	p.cache[cacheKey] = parsed
	p.cacheMu.Unlock()

	return parsed, nil
}

func (p *TagParser) parseTagValue(tagValue string) (Annotations, error) {
	var a Annotations

	if tagValue == "-" {
		a.NotMapped = true
		return a, nil
	}

	if !strings.ContainsAny(tagValue, ";:") {
		if !p.parseFlag(&a, strings.TrimSpace(tagValue)) {
			a.Column = tagValue
		}
		return a, nil
	}

	for _, option := range strings.Split(tagValue, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}

		if colonIdx := strings.IndexByte(option, ':'); colonIdx != -1 {
			key := strings.TrimSpace(option[:colonIdx])
			value := strings.TrimSpace(option[colonIdx+1:])
			if err := p.parseKeyValue(&a, key, value); err != nil {
				return Annotations{}, err
			}
			continue
		}

		// Unknown flags are ignored for forward compatibility
		p.parseFlag(&a, option)
	}

	return a, nil
}

// parseFlag applies a valueless option and reports whether it was known.
func (p *TagParser) parseFlag(a *Annotations, flag string) bool {
	switch flag {
	case "not_mapped", "-":
		a.NotMapped = true
	case "primary_key", "pk":
		a.PrimaryKey = true
		a.KeyOrder = 1
	default:
		return false
	}
	return true
}

func (p *TagParser) parseKeyValue(a *Annotations, key, value string) error {
	switch key {
	case "column", "name":
		a.Column = value

	case "primary_key", "pk":
		order, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid primary key order '%s': must be integer", value)
		}
		if order < 1 {
			return fmt.Errorf("invalid primary key order %d: must be positive", order)
		}
		a.PrimaryKey = true
		a.KeyOrder = order

	case "inner", "inner_type":
		t, ok := p.resolveType(value)
		if !ok {
			return fmt.Errorf("unknown inner type '%s'", value)
		}
		a.InnerType = t

	case "generator", "gen":
		a.Generator = value

	default:
		// Ignore unknown key:value pairs for extensibility
	}

	return nil
}

// ClearCache removes all cached parsed tags.
func (p *TagParser) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	clear(p.cache)
}

// CacheSize returns the current number of cached parsed tags.
func (p *TagParser) CacheSize() int {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return len(p.cache)
}

// PropertyOption overrides the tag-declared annotations of one field.
// Options are registered with Context.Configure.
type PropertyOption func(*Annotations)

// WithColumn sets an explicit column name.
func WithColumn(name string) PropertyOption {
	return func(a *Annotations) { a.Column = name }
}

// WithPrimaryKey makes the field the order-th primary key part.
func WithPrimaryKey(order int) PropertyOption {
	return func(a *Annotations) {
		a.PrimaryKey = true
		a.KeyOrder = order
	}
}

// WithInnerType declares the element type of an ARRAY column.
func WithInnerType(t reflect.Type) PropertyOption {
	return func(a *Annotations) { a.InnerType = t }
}

// WithKeyGenerator names the generator that fills the field when it is zero.
func WithKeyGenerator(name string) PropertyOption {
	return func(a *Annotations) { a.Generator = name }
}

// NotMapped excludes the field from persistence.
func NotMapped() PropertyOption {
	return func(a *Annotations) { a.NotMapped = true }
}
