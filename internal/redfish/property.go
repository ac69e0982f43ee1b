package redfish

import (
	"context"
	"sync"
	"time"

	"github.com/google/ecclesia-mmaster/pkg/apperror"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// ValueKind discriminates the scalar variants a property can hold.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindBool
	KindString
	KindDouble
)

// Value is a typed property value. Construct with IntValue/BoolValue/
// StringValue/DoubleValue; read with the matching accessor.
type Value struct {
	Kind ValueKind
	i    int64
	b    bool
	s    string
	d    float64
}

func IntValue(v int64) Value    { return Value{Kind: KindInt, i: v} }
func BoolValue(v bool) Value    { return Value{Kind: KindBool, b: v} }
func StringValue(v string) Value { return Value{Kind: KindString, s: v} }
func DoubleValue(v float64) Value { return Value{Kind: KindDouble, d: v} }

func (v Value) AsInt() (int64, bool)      { return v.i, v.Kind == KindInt }
func (v Value) AsBool() (bool, bool)      { return v.b, v.Kind == KindBool }
func (v Value) AsString() (string, bool)  { return v.s, v.Kind == KindString }
func (v Value) AsDouble() (float64, bool) { return v.d, v.Kind == KindDouble }

// Any unwraps the value to its concrete Go type, for callers (the
// resource collector) that build an untyped field bag rather than
// reading a specific kind.
func (v Value) Any() any {
	switch v.Kind {
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindDouble:
		return v.d
	default:
		return nil
	}
}

// Equal reports whether two values are equal (same kind, same content).
// Set and refresh do not consult it: Set always rewrites the entry.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.i == o.i
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindDouble:
		return v.d == o.d
	default:
		return false
	}
}

type propertyEntry struct {
	value     Value
	sourceURI string
	expiresAt time.Time
}

// Refresher re-extracts every registered property from a source URI into
// every component whose associated-URI set contains it, on a cache-miss
// refresh.
type Refresher interface {
	Refresh(ctx context.Context, sourceURI string, now time.Time) error
}

// PropertyContainer is a per-component cache of typed properties, each
// with a source URI and expiration time. Writes are serialized by mu;
// readers never observe a partially-written entry.
type PropertyContainer struct {
	mu        sync.Mutex
	entries   map[string]propertyEntry
	refresher Refresher
}

// NewPropertyContainer returns an empty container. refresher may be nil,
// in which case an expired Get always misses.
func NewPropertyContainer(refresher Refresher) *PropertyContainer {
	return &PropertyContainer{entries: make(map[string]propertyEntry), refresher: refresher}
}

// Set records {value, source_uri, now + duration}. A value equal to the
// entry already on record is still rewritten, refreshing the expiration.
func (c *PropertyContainer) Set(name string, value Value, sourceURI string, now time.Time, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = propertyEntry{value: value, sourceURI: sourceURI, expiresAt: now.Add(duration)}
}

// Get returns the property's value if present and not expired. A
// duration-zero property is fresh at exactly now == expiration_time.
// On expiry it triggers a refresh of the entry's source URI and retries
// once; a refresh failure or still-expired retry yields a miss, leaving
// the stale entry in place.
func (c *PropertyContainer) Get(ctx context.Context, name string, now time.Time) (Value, bool) {
	e, ok := c.load(name)
	if !ok {
		return Value{}, false
	}
	if !now.After(e.expiresAt) {
		return e.value, true
	}
	if c.refresher == nil {
		return Value{}, false
	}
	if err := c.refresher.Refresh(ctx, e.sourceURI, now); err != nil {
		logger.Get().Warn("redfish: property refresh failed", "property", name, "source_uri", e.sourceURI, "error", err)
		return Value{}, false
	}
	e, ok = c.load(name)
	if !ok || now.After(e.expiresAt) {
		return Value{}, false
	}
	return e.value, true
}

func (c *PropertyContainer) load(name string) (propertyEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// GetInt, GetBool, GetString, and GetDouble wrap Get with a kind check; a
// kind mismatch is logged as an invariant violation and reported as a
// miss: type mismatch yields None, logged, never a panic.
func (c *PropertyContainer) GetInt(ctx context.Context, name string, now time.Time) (int64, bool) {
	v, ok := c.Get(ctx, name, now)
	if !ok {
		return 0, false
	}
	n, ok := v.AsInt()
	if !ok {
		logger.Get().Warn("redfish: property kind mismatch", "property", name, "want", "int")
		return 0, false
	}
	return n, true
}

func (c *PropertyContainer) GetBool(ctx context.Context, name string, now time.Time) (bool, bool) {
	v, ok := c.Get(ctx, name, now)
	if !ok {
		return false, false
	}
	b, ok := v.AsBool()
	if !ok {
		logger.Get().Warn("redfish: property kind mismatch", "property", name, "want", "bool")
		return false, false
	}
	return b, true
}

func (c *PropertyContainer) GetString(ctx context.Context, name string, now time.Time) (string, bool) {
	v, ok := c.Get(ctx, name, now)
	if !ok {
		return "", false
	}
	s, ok := v.AsString()
	if !ok {
		logger.Get().Warn("redfish: property kind mismatch", "property", name, "want", "string")
		return "", false
	}
	return s, true
}

func (c *PropertyContainer) GetDouble(ctx context.Context, name string, now time.Time) (float64, bool) {
	v, ok := c.Get(ctx, name, now)
	if !ok {
		return 0, false
	}
	d, ok := v.AsDouble()
	if !ok {
		logger.Get().Warn("redfish: property kind mismatch", "property", name, "want", "double")
		return 0, false
	}
	return d, true
}

// PropertyDef registers one extractable property: a name, a compile-time
// cache duration, and an extractor that reads it from a decoded Redfish
// object. Extract returns ok=false when the property is absent from the
// payload (a CachePartial condition at the registry level: the existing
// container entry, if any, is left untouched).
type PropertyDef struct {
	Name     string
	Duration time.Duration
	Extract  func(obj map[string]any) (Value, bool)
}

// PropertyRegistry maps property name to extractor.
type PropertyRegistry struct {
	defs []PropertyDef
}

// NewPropertyRegistry builds a registry from its property definitions.
func NewPropertyRegistry(defs ...PropertyDef) *PropertyRegistry {
	return &PropertyRegistry{defs: defs}
}

// ExtractAll re-extracts every registered property from obj into a
// single component's container.
func (r *PropertyRegistry) ExtractAll(obj map[string]any, sourceURI string, now time.Time, into *PropertyContainer) {
	for _, d := range r.defs {
		v, ok := d.Extract(obj)
		if !ok {
			continue
		}
		into.Set(d.Name, v, sourceURI, now, d.Duration)
	}
}

// SourceRefresher implements Refresher by fetching a URI through a Source
// and re-extracting every registered property into every component whose
// associated-URI set contains it.
type SourceRefresher struct {
	source   Source
	registry *PropertyRegistry

	mu    sync.Mutex
	byURI map[string][]*Component
}

// NewSourceRefresher builds a refresher backed by source and registry.
// Call index (via Build) once topology construction has classified every
// component, so Refresh knows which components share a source URI.
func NewSourceRefresher(source Source, registry *PropertyRegistry) *SourceRefresher {
	return &SourceRefresher{source: source, registry: registry, byURI: make(map[string][]*Component)}
}

func (r *SourceRefresher) index(a *Assembly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range a.Components {
		for _, uri := range c.AssociatedURIs {
			r.byURI[uri] = append(r.byURI[uri], c)
		}
	}
}

// Refresh fetches sourceURI and re-extracts every registered property
// into every component associated with it.
func (r *SourceRefresher) Refresh(ctx context.Context, sourceURI string, now time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "redfish.FetchObject")
	span.SetAttributes(telemetry.RedfishFetchAttributes(sourceURI)...)
	defer span.End()

	obj, err := r.source.FetchObject(ctx, sourceURI)
	if err != nil {
		telemetry.SetError(ctx, err)
		return apperror.Wrap(err, apperror.CodeTransportFailure, "redfish: property refresh fetch failed")
	}

	r.mu.Lock()
	components := append([]*Component(nil), r.byURI[sourceURI]...)
	r.mu.Unlock()

	for _, c := range components {
		r.registry.ExtractAll(obj, sourceURI, now, c.Properties)
	}
	return nil
}
