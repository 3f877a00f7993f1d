// Package loader maps file suffixes to the loaders that turn a resolved file
// into a record field value.
//
// A Factory is instantiated once per resolved path and returns a Func that
// is invoked with each record needing the value. Factories for the suffixes
// below are registered on DefaultRegistry:
//
//	.lst .txt   list of identifiers
//	.uem        annotated regions (*annotation.Timeline for the record's uri)
//	.rttm       speaker turns (*annotation.Annotation for the record's uri)
//	.map        two-column "uri value" mapping (value for the record's uri)
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/protodb/record"
)

// ErrUnsupportedFormat is returned when no factory is registered for a suffix.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Func loads a value for one record.
type Func = record.Loader

// Factory binds a loader to a resolved file path.
type Factory func(path string) (Func, error)

// Registry holds factories keyed by suffix, including the leading dot.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is the global registry with the built-in loaders.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the built-in loaders.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register(".lst", NewListLoader)
	r.Register(".txt", NewListLoader)
	r.Register(".uem", NewUEMLoader)
	r.Register(".rttm", NewRTTMLoader)
	r.Register(".map", NewMapLoader)
	return r
}

// NewEmptyRegistry creates a registry with no loaders.
func NewEmptyRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for suffix. A missing leading dot
// is added.
func (r *Registry) Register(suffix string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(suffix)] = f
}

// Lookup returns the factory for suffix.
func (r *Registry) Lookup(suffix string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[normalize(suffix)]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for files with %q suffix", ErrUnsupportedFormat, suffix)
	}
	return f, nil
}

// LookupPath returns the factory matching the suffix of path.
func (r *Registry) LookupPath(path string) (Factory, error) {
	return r.Lookup(filepath.Ext(path))
}

// Has reports whether a factory is registered for suffix.
func (r *Registry) Has(suffix string) bool {
	_, err := r.Lookup(suffix)
	return err == nil
}

// Suffixes returns the registered suffixes in sorted order.
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suffixes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	return suffixes
}

func normalize(suffix string) string {
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		return "." + suffix
	}
	return suffix
}
