package catalog

import (
	"fmt"
	"iter"
	"strings"

	"github.com/c360studio/protodb/loader"
	"github.com/c360studio/protodb/metrics"
	"github.com/c360studio/protodb/protocol"
	"github.com/c360studio/protodb/record"
	"github.com/c360studio/protodb/resolve"
	"gopkg.in/yaml.v3"
)

// Identifier-list field names. "uris" is a deprecated alias of "uri".
const (
	fieldURI  = "uri"
	fieldURIs = "uris"
)

type fieldDecl struct {
	key   string
	value string
}

type fieldBinding struct {
	key  string
	load loader.Func
}

// subsetFunc returns the generator of a regular subset. Every call starts
// from the declared entries again: the uri list is re-read and eager loaders
// are re-instantiated unless eager loader caching was enabled.
func (s *Synthesizer) subsetFunc(src subsetSource) protocol.SubsetFunc {
	var eager map[string]loader.Func
	if s.cacheEagerLoaders {
		eager = make(map[string]loader.Func)
	}

	return func() iter.Seq2[*record.Record, error] {
		return func(yield func(*record.Record, error) bool) {
			uris, bindings, err := s.prepare(src, eager)
			if err != nil {
				yield(nil, err)
				return
			}

			var opts []record.Option
			if s.memoizeFields {
				opts = append(opts, record.WithMemoize())
			}

			for _, uri := range uris {
				r := record.New(opts...).
					Set(record.FieldURI, uri).
					Set(record.FieldDatabase, src.database).
					Set(record.FieldSubset, string(src.subset))
				for _, b := range bindings {
					r.SetLazy(b.key, b.load)
				}
				s.metrics.RecordYielded(src.database, string(src.subset))
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// prepare loads the uri list and binds every other field. Deferred fields
// only get their suffix checked; eager fields are resolved and their loader
// instantiated once for the whole subset.
func (s *Synthesizer) prepare(src subsetSource, eager map[string]loader.Func) ([]string, []fieldBinding, error) {
	fields, err := decodeFields(src.entries)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src, err)
	}

	listDecl, err := s.identifierList(src, fields)
	if err != nil {
		return nil, nil, err
	}
	listPath, err := resolve.Path(listDecl, s.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: uri list: %w", src, err)
	}
	uris, err := resolve.List(listPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: uri list: %w", src, err)
	}

	bindings := make([]fieldBinding, 0, len(fields))
	for _, f := range fields {
		if f.key == fieldURI || f.key == fieldURIs {
			continue
		}

		if template, ok := strings.CutPrefix(f.value, DeferralMarker); ok {
			load, err := s.loaders.Template(template, s.configDir)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: field %q: %w", src, f.key, err)
			}
			s.metrics.LoaderBuilt(metrics.KindDeferred)
			bindings = append(bindings, fieldBinding{key: f.key, load: s.instrument(f.key, load)})
			continue
		}

		if load, ok := eager[f.key]; ok {
			bindings = append(bindings, fieldBinding{key: f.key, load: load})
			continue
		}

		load, err := s.eagerLoader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: field %q: %w", src, f.key, err)
		}
		load = s.instrument(f.key, load)
		if eager != nil {
			eager[f.key] = load
		}
		bindings = append(bindings, fieldBinding{key: f.key, load: load})
	}

	return uris, bindings, nil
}

// identifierList returns the declaration of the uri list, warning once per
// call when the deprecated alias is used.
func (s *Synthesizer) identifierList(src subsetSource, fields []fieldDecl) (string, error) {
	var list, alias *fieldDecl
	for i := range fields {
		switch {
		case fields[i].key == fieldURI && list == nil:
			list = &fields[i]
		case fields[i].key == fieldURIs && alias == nil:
			alias = &fields[i]
		}
	}

	switch {
	case list != nil && alias != nil:
		s.logger.Warn("Ignoring 'uris' entry shadowed by 'uri'",
			"entry", src.String(),
			"config", s.configPath)
		return list.value, nil
	case list != nil:
		return list.value, nil
	case alias != nil:
		s.logger.Warn("Found deprecated 'uris' entry, use 'uri' (singular) instead",
			"entry", src.String(),
			"config", s.configPath)
		return alias.value, nil
	default:
		return "", fmt.Errorf("%w in %s", ErrMissingField, src)
	}
}

// eagerLoader resolves the declared file, checks its suffix and instantiates
// its loader.
func (s *Synthesizer) eagerLoader(f fieldDecl) (loader.Func, error) {
	path, err := resolve.Path(f.value, s.configDir)
	if err != nil {
		return nil, err
	}
	factory, err := s.loaders.LookupPath(path)
	if err != nil {
		return nil, err
	}
	load, err := factory(path)
	if err != nil {
		return nil, fmt.Errorf("instantiate loader for %s: %w", path, err)
	}
	s.metrics.LoaderBuilt(metrics.KindEager)
	return load, nil
}

func (s *Synthesizer) instrument(key string, load loader.Func) loader.Func {
	if s.metrics == nil {
		return load
	}
	return func(r *record.Record) (any, error) {
		s.metrics.FieldLoaded(key)
		return load(r)
	}
}

// decodeFields reads a subset's "field: declaration" mapping.
func decodeFields(entries *yaml.Node) ([]fieldDecl, error) {
	pairs, err := mappingPairs(entries)
	if err != nil {
		return nil, err
	}
	fields := make([]fieldDecl, 0, len(pairs))
	for _, p := range pairs {
		value, err := scalar(p.value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", p.key, err)
		}
		fields = append(fields, fieldDecl{key: p.key, value: value})
	}
	return fields, nil
}
