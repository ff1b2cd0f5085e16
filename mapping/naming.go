package mapping

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// Naming strategies for Spanner column and table names.

// pluralizeClient is shared so every table strategy pluralises the same way.
var pluralizeClient = pluralizer.NewClient()

// =========================================================================
// Field Naming
// =========================================================================

// FieldNamingStrategy derives the default column name of a property when no
// explicit column name is declared.
type FieldNamingStrategy interface {
	// FieldName returns the column name for p. An empty result is a
	// configuration error reported by PersistentProperty.ColumnName.
	FieldName(p *PersistentProperty) string
}

// FieldNamingFunc adapts a plain function to FieldNamingStrategy.
type FieldNamingFunc func(p *PersistentProperty) string

// FieldName calls f(p).
func (f FieldNamingFunc) FieldName(p *PersistentProperty) string {
	return f(p)
}

// PropertyNameStrategy uses the Go field name unchanged. It is the default.
type PropertyNameStrategy struct{}

// FieldName returns the declared field name.
func (PropertyNameStrategy) FieldName(p *PersistentProperty) string {
	return p.Name()
}

// ColumnNamingType represents different column naming conventions.
type ColumnNamingType int

const (
	ColumnSnakeCase      ColumnNamingType = iota // user_id, first_name, created_at
	ColumnCamelCase                              // userId, firstName, createdAt
	ColumnPascalCase                             // UserId, FirstName, CreatedAt
	ColumnUpperSnakeCase                         // USER_ID, FIRST_NAME, CREATED_AT
)

// caseNamingStrategy converts the Go field name to one naming convention.
type caseNamingStrategy struct {
	namingType ColumnNamingType
}

// NewCaseNamingStrategy creates a field naming strategy for namingType.
func NewCaseNamingStrategy(namingType ColumnNamingType) FieldNamingStrategy {
	return caseNamingStrategy{namingType: namingType}
}

// FieldName converts the field name according to the configured convention.
func (c caseNamingStrategy) FieldName(p *PersistentProperty) string {
	return c.convert(p.Name())
}

func (c caseNamingStrategy) convert(name string) string {
	switch c.namingType {
	case ColumnCamelCase:
		return toCamelCase(name)
	case ColumnPascalCase:
		return toPascalCase(name)
	case ColumnUpperSnakeCase:
		return strings.ToUpper(toSnakeCase(name))
	default:
		return toSnakeCase(name)
	}
}

// =========================================================================
// Table Naming
// =========================================================================

// TableNamingStrategy derives a table name from a Go struct name. Types that
// implement Table override it.
type TableNamingStrategy interface {
	TableName(structName string) string
}

// TableNamingType represents different table naming conventions.
type TableNamingType int

const (
	TableTypeName           TableNamingType = iota // User, BlogPost (unchanged)
	TableSnakeCaseSingular                         // user, blog_post
	TableSnakeCasePlural                           // users, blog_posts
	TableCamelCaseSingular                         // user, blogPost
	TableCamelCasePlural                           // users, blogPosts
	TablePascalCaseSingular                        // User, BlogPost
	TablePascalCasePlural                          // Users, BlogPosts
)

type tableNamingStrategy struct {
	namingType TableNamingType
}

// NewTableNamingStrategy creates a table naming strategy for namingType.
func NewTableNamingStrategy(namingType TableNamingType) TableNamingStrategy {
	return tableNamingStrategy{namingType: namingType}
}

// TableName converts struct names according to the configured strategy.
func (t tableNamingStrategy) TableName(structName string) string {
	switch t.namingType {
	case TableSnakeCaseSingular:
		return toSnakeCase(structName)
	case TableSnakeCasePlural:
		return pluralize(toSnakeCase(structName))
	case TableCamelCaseSingular:
		return toCamelCase(structName)
	case TableCamelCasePlural:
		return pluralize(toCamelCase(structName))
	case TablePascalCaseSingular:
		return toPascalCase(structName)
	case TablePascalCasePlural:
		return pluralize(toPascalCase(structName))
	default:
		return structName
	}
}

// =========================================================================
// Core Conversion Functions
// =========================================================================

// toSnakeCase converts any naming convention to snake_case.
// Handles acronyms and digits: UserID -> user_id, HTTPServer -> http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	switch name {
	case "ID", "UUID", "URL", "API", "JSON", "SQL":
		return strings.ToLower(name)
	}

	// Already snake_case
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	var result strings.Builder
	result.Grow(len(name) + 8)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			// aB -> a_b, a1B -> a1_b, ABc -> a_bc
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				result.WriteByte('_')
			}
		}
		result.WriteRune(unicode.ToLower(r))
	}

	return result.String()
}

// toCamelCase converts any naming convention to camelCase.
func toCamelCase(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		return ""
	}
	runes := []rune(pascal)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// toPascalCase converts any naming convention to PascalCase.
func toPascalCase(name string) string {
	if name == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(name))

	for _, part := range strings.Split(toSnakeCase(name), "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}

	return result.String()
}

// pluralize converts singular nouns to their plural forms, keeping the case
// pattern of the input.
func pluralize(name string) string {
	if name == "" {
		return ""
	}
	return preserveCase(name, pluralizeClient.Pluralize(name, 2, false))
}

// hasUpperCase returns true if the string contains any uppercase letters.
func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// preserveCase applies the case pattern of original to result.
func preserveCase(original, result string) string {
	if original == "" || result == "" {
		return result
	}

	if strings.ToLower(original) == original {
		return strings.ToLower(result)
	}

	if strings.ToUpper(original) == original {
		return strings.ToUpper(result)
	}

	// Mixed case: the pluraliser only touches the tail, so keep its output
	// but make sure the leading rune matches.
	runes := []rune(result)
	if unicode.IsUpper([]rune(original)[0]) {
		runes[0] = unicode.ToUpper(runes[0])
	} else {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}
