// Package mapping resolves how Go structs map onto Cloud Spanner tables:
// column names, primary key order, ARRAY element types and nested table
// types, driven by spanner struct tags and a configurable naming strategy.
package mapping

import (
	"fmt"
	"reflect"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	defaultTagName   = "spanner"
	defaultCacheSize = 256
)

// Context builds and caches PersistentEntity metadata for struct types.
// It is safe for concurrent use. Registrations may happen at any time: an
// entity whose build overlaps a registration or Purge is rebuilt rather
// than cached.
type Context struct {
	// Configuration
	fieldNaming FieldNamingStrategy
	tableNaming TableNamingStrategy
	tagName     string
	extraSimple []reflect.Type
	generators  *GeneratorRegistry
	logger      *zap.Logger
	cacheSize   int
	onEvict     func(reflect.Type, *PersistentEntity)

	// Built by New
	simpleTypes *SimpleTypes
	parser      *TagParser
	entityCache *lru.Cache[reflect.Type, *PersistentEntity]

	// Registrations
	mu        sync.RWMutex
	tables    map[reflect.Type]struct{}
	types     map[string]reflect.Type
	overrides map[reflect.Type]map[string][]PropertyOption

	// Bumped on every invalidation; guards entityCache writes
	cacheMu    sync.Mutex
	generation uint64
}

type Option func(*Context)

// WithFieldNamingStrategy sets the strategy deriving column names of fields
// without an explicit column. A nil strategy keeps the default.
func WithFieldNamingStrategy(strategy FieldNamingStrategy) Option {
	return func(c *Context) {
		if strategy != nil {
			c.fieldNaming = strategy
		}
	}
}

// WithTableNamingStrategy sets the strategy deriving table names of types
// that do not implement Table.
func WithTableNamingStrategy(strategy TableNamingStrategy) Option {
	return func(c *Context) {
		if strategy != nil {
			c.tableNaming = strategy
		}
	}
}

// WithTagName sets the struct tag read for annotations. Default "spanner".
func WithTagName(tagName string) Option {
	return func(c *Context) { c.tagName = tagName }
}

// WithCacheSize sets the LRU cache size for entity metadata.
func WithCacheSize(size int) Option {
	return func(c *Context) { c.cacheSize = size }
}

// WithEvictionCallback sets a callback for cache eviction events. The
// callback runs while the cache is updated and must not call back into the
// Context.
func WithEvictionCallback(onEvict func(reflect.Type, *PersistentEntity)) Option {
	return func(c *Context) { c.onEvict = onEvict }
}

// WithSimpleTypes adds types that are stored as single column values.
func WithSimpleTypes(types ...reflect.Type) Option {
	return func(c *Context) { c.extraSimple = append(c.extraSimple, types...) }
}

// WithGenerator registers a named key generator.
func WithGenerator(name string, generator IDGenerator) Option {
	return func(c *Context) { c.generators.Register(name, generator) }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a mapping context.
func New(options ...Option) *Context {
	c := &Context{
		fieldNaming: PropertyNameStrategy{},
		tableNaming: NewTableNamingStrategy(TableTypeName),
		tagName:     defaultTagName,
		generators:  NewGeneratorRegistry(),
		logger:      zap.NewNop(),
		cacheSize:   defaultCacheSize,
		tables:      make(map[reflect.Type]struct{}),
		types:       make(map[string]reflect.Type),
		overrides:   make(map[reflect.Type]map[string][]PropertyOption),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.cacheSize <= 0 {
		c.cacheSize = defaultCacheSize
	}

	c.simpleTypes = NewSimpleTypes(c.extraSimple...)
	c.parser = NewTagParser(c.tagName, c.resolveType)
	// Size is positive, so NewWithEvict cannot fail.
	c.entityCache, _ = lru.NewWithEvict(c.cacheSize, func(t reflect.Type, e *PersistentEntity) {
		c.logger.Debug("evicted persistent entity", zap.Stringer("type", t))
		if c.onEvict != nil {
			c.onEvict(t, e)
		}
	})

	return c
}

// Entity returns the metadata of model's struct type. model may be a
// struct value, a pointer to one, or a reflect.Type.
func (c *Context) Entity(model any) (*PersistentEntity, error) {
	if t, ok := model.(reflect.Type); ok {
		return c.EntityOf(t)
	}
	return c.EntityOf(reflect.TypeOf(model))
}

// EntityOf returns the metadata of t, building and caching it on first use.
// Pointer types are dereferenced.
func (c *Context) EntityOf(t reflect.Type) (*PersistentEntity, error) {
	if t == nil {
		return nil, fmt.Errorf("invalid model: %w", ErrNotStruct)
	}
	t = indirectType(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid model type %s: %w", t, ErrNotStruct)
	}

	if e, ok := c.entityCache.Get(t); ok {
		return e, nil
	}

	// Building is deterministic, so a concurrent duplicate build only
	// replaces an equal value. A build that raced an invalidation may have
	// read stale registrations and is redone.
	for {
		generation := c.currentGeneration()

		e, err := buildEntity(c, t)
		if err != nil {
			return nil, err
		}

		if c.addIfCurrent(t, e, generation) {
			c.logger.Debug("built persistent entity",
				zap.Stringer("type", t),
				zap.String("table", e.TableName()),
				zap.Int("properties", len(e.properties)))
			return e, nil
		}

		c.logger.Debug("discarded stale persistent entity", zap.Stringer("type", t))
	}
}

func (c *Context) currentGeneration() uint64 {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	return c.generation
}

// addIfCurrent caches e unless an invalidation happened since generation.
func (c *Context) addIfCurrent(t reflect.Type, e *PersistentEntity, generation uint64) bool {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if c.generation != generation {
		return false
	}
	c.entityCache.Add(t, e)
	return true
}

// invalidate drops the cached metadata of t, or of every type when t is nil.
func (c *Context) invalidate(t reflect.Type) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.generation++
	if t == nil {
		c.entityCache.Purge()
		return
	}
	c.entityCache.Remove(t)
}

// RegisterTable marks the struct types of models as tables, for types that
// cannot implement Table themselves. Nil models are ignored. Cached metadata
// is dropped since properties holding these types become nested entities.
func (c *Context) RegisterTable(models ...any) {
	c.mu.Lock()
	for _, m := range models {
		if t := modelType(m); t != nil {
			c.tables[t] = struct{}{}
		}
	}
	c.mu.Unlock()

	c.invalidate(nil)
}

// IsTable reports whether t (or its pointer element) carries the table
// marker.
func (c *Context) IsTable(t reflect.Type) bool {
	t = indirectType(t)
	if t == nil {
		return false
	}
	if implementsTable(t) {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[t]
	return ok
}

// RegisterType makes t available to the inner: tag option under name.
// Cached metadata is dropped so later lookups see the new name.
func (c *Context) RegisterType(name string, t reflect.Type) {
	c.mu.Lock()
	c.types[name] = t
	c.mu.Unlock()

	c.parser.ClearCache()
	c.invalidate(nil)
}

// Configure registers annotation overrides for a field of model's type.
// Overrides are applied over the field's tag. A nil model is ignored.
func (c *Context) Configure(model any, field string, opts ...PropertyOption) {
	t := modelType(model)
	if t == nil {
		return
	}

	c.mu.Lock()
	fields, ok := c.overrides[t]
	if !ok {
		fields = make(map[string][]PropertyOption)
		c.overrides[t] = fields
	}
	fields[field] = append(fields[field], opts...)
	c.mu.Unlock()

	c.invalidate(t)
}

// Generators returns the key generator registry.
func (c *Context) Generators() *GeneratorRegistry {
	return c.generators
}

// Purge drops all cached entity metadata.
func (c *Context) Purge() {
	c.invalidate(nil)
}

// CachedEntities returns the number of cached entities.
func (c *Context) CachedEntities() int {
	return c.entityCache.Len()
}

func (c *Context) resolveType(name string) (reflect.Type, bool) {
	c.mu.RLock()
	t, ok := c.types[name]
	c.mu.RUnlock()
	if ok {
		return t, true
	}
	t, ok = builtinInnerTypes[name]
	return t, ok
}

// annotationsFor parses the field tag and applies registered overrides.
func (c *Context) annotationsFor(owner reflect.Type, f reflect.StructField) (Annotations, error) {
	a, err := c.parser.ParseTag(f.Name, f.Tag)
	if err != nil {
		return Annotations{}, err
	}

	c.mu.RLock()
	opts := c.overrides[owner][f.Name]
	c.mu.RUnlock()

	for _, opt := range opts {
		opt(&a)
	}
	return a, nil
}

// modelType returns the dereferenced type of a model value or reflect.Type.
func modelType(model any) reflect.Type {
	t, ok := model.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(model)
	}
	return indirectType(t)
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
