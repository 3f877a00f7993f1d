// Package record provides the lazily-populated item yielded by protocol
// subsets.
//
// A Record is an ordered mapping from field name to a binding. A binding is
// either a resolved value or a deferred Loader that is evaluated when the
// field is read. Deferred bindings are evaluated on every access unless the
// record was built with memoization enabled.
package record

import (
	"errors"
	"fmt"
)

// Standard field names carried by every record.
const (
	FieldURI      = "uri"
	FieldDatabase = "database"
	FieldSubset   = "subset"
	FieldChannel  = "channel"
)

var (
	// ErrMissingField is returned when reading a field the record does not carry.
	ErrMissingField = errors.New("missing field")

	// ErrMissingPlaceholder is returned when a template names a field that
	// has no resolved value.
	ErrMissingPlaceholder = errors.New("missing placeholder")

	// ErrMalformedTemplate is returned for templates with unbalanced braces.
	ErrMalformedTemplate = errors.New("malformed template")
)

// Loader computes the value of a deferred field from the record it belongs to.
type Loader func(r *Record) (any, error)

// binding is Resolved(value) | Deferred(loader).
type binding struct {
	value  any
	loader Loader
}

func (b *binding) deferred() bool {
	return b.loader != nil
}

// Record is one item of a protocol subset.
// It is not safe for concurrent mutation.
type Record struct {
	keys    []string
	fields  map[string]*binding
	memoize bool
}

// Option configures a Record.
type Option func(*Record)

// WithMemoize makes deferred fields cache their first successful result.
func WithMemoize() Option {
	return func(r *Record) {
		r.memoize = true
	}
}

// New creates an empty record.
func New(opts ...Option) *Record {
	r := &Record{fields: make(map[string]*binding)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Set binds key to a resolved value, replacing any previous binding.
func (r *Record) Set(key string, value any) *Record {
	r.bind(key, &binding{value: value})
	return r
}

// SetLazy binds key to a deferred loader, replacing any previous binding.
func (r *Record) SetLazy(key string, loader Loader) *Record {
	if loader == nil {
		return r.Set(key, nil)
	}
	r.bind(key, &binding{loader: loader})
	return r
}

func (r *Record) bind(key string, b *binding) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = b
}

// Has reports whether key is bound, resolved or not.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// IsLazy reports whether key is bound to a loader that has not produced a
// cached value.
func (r *Record) IsLazy(key string) bool {
	b, ok := r.fields[key]
	return ok && b.deferred()
}

// Keys returns field names in binding order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Get returns the value of key, evaluating its loader if it is deferred.
func (r *Record) Get(key string) (any, error) {
	b, ok := r.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	if !b.deferred() {
		return b.value, nil
	}

	value, err := b.loader(r)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if r.memoize {
		b.value = value
		b.loader = nil
	}
	return value, nil
}

// String returns the value of key formatted as a string. Deferred fields are
// evaluated.
func (r *Record) String(key string) (string, error) {
	value, err := r.Get(key)
	if err != nil {
		return "", err
	}
	return format(value), nil
}

// URI returns the record's uri, or "" when it is missing or not a string.
func (r *Record) URI() string {
	b, ok := r.fields[FieldURI]
	if !ok || b.deferred() {
		return ""
	}
	s, _ := b.value.(string)
	return s
}

// Abs returns the resolved fields only. Deferred fields are left out and no
// loader runs, which makes it safe to use while a loader is itself running.
func (r *Record) Abs() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, key := range r.keys {
		b := r.fields[key]
		if b.deferred() {
			continue
		}
		out[key] = b.value
	}
	return out
}

// Format substitutes every {name} placeholder in template with the record's
// resolved fields.
func (r *Record) Format(template string) (string, error) {
	return Substitute(template, r.Abs())
}

// Copy returns a shallow copy carrying the same bindings. Cached values are
// not shared with the copy after it is made.
func (r *Record) Copy() *Record {
	c := New()
	c.memoize = r.memoize
	for _, key := range r.keys {
		b := *r.fields[key]
		c.bind(key, &b)
	}
	return c
}
