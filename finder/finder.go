// Package finder resolves a logical (database, uri, channel) reference to a
// file on disk.
//
// The search space is read from a YAML document whose root is a path
// template, a list of templates, or a mapping from database name to either:
//
//	# all files in one directory
//	/path/to/files/{uri}.wav
//
//	# one entry per database, with globbing
//	database1: /path/to/{database}/{uri}.wav
//	database2:
//	  - /path/to/files/1/{uri}.wav
//	  - /path/to/files/*/{uri}.wav
//
// Templates are expanded with the query fields, then globbed. Exactly one
// file must match.
package finder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/protodb/metrics"
	"github.com/c360studio/protodb/record"
	"github.com/c360studio/protodb/resolve"
)

// DefaultConfigPath is read when no finder configuration path is given.
const DefaultConfigPath = "~/.protodb/db.yml"

var (
	// ErrNotFound is returned when no file matches a query.
	ErrNotFound = errors.New("no file found")

	// ErrAmbiguous is returned when more than one file matches a query.
	ErrAmbiguous = errors.New("ambiguous file match")

	// ErrMismatchedLength is returned when a list-valued database or channel
	// does not have one element per uri.
	ErrMismatchedLength = errors.New("mismatched query lengths")

	// ErrMalformedConfig is returned for a search space that is not a
	// template, a list, or a mapping.
	ErrMalformedConfig = errors.New("malformed finder config")
)

// Query identifies one file.
type Query struct {
	URI      string
	Database string
	Channel  string

	// Fields are extra placeholder values. uri, database and channel take
	// precedence over entries of the same name.
	Fields map[string]any
}

// BatchQuery identifies one file per uri. Databases and Channels are either
// empty, a single value applied to every uri, or one value per uri.
type BatchQuery struct {
	URIs      []string
	Databases []string
	Channels  []string
	Fields    map[string]any
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics enables lookup counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Finder) {
		f.metrics = m
	}
}

// Finder resolves queries against a search space. It is read-only after
// construction and safe for concurrent use.
type Finder struct {
	space   SearchSpace
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New reads the search space from path, or DefaultConfigPath when path is
// empty.
func New(path string, opts ...Option) (*Finder, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	expanded, err := resolve.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read finder config: %w", err)
	}
	space, err := ParseSpace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return NewWithSpace(space, opts...), nil
}

// Parse builds a finder from YAML data.
func Parse(data []byte, opts ...Option) (*Finder, error) {
	space, err := ParseSpace(data)
	if err != nil {
		return nil, err
	}
	return NewWithSpace(space, opts...), nil
}

// NewWithSpace builds a finder over an in-memory search space.
func NewWithSpace(space SearchSpace, opts ...Option) *Finder {
	f := &Finder{space: space, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns the single file matching q.
func (f *Finder) Find(q Query) (string, error) {
	path, err := f.find(newQuery(q))
	f.metrics.FinderLookup(outcome(err))
	if err != nil {
		f.logger.Debug("File lookup failed", "uri", q.URI, "database", q.Database, "error", err)
		return "", err
	}
	return path, nil
}

// FindAll resolves every uri of q in order. It stops at the first failure.
func (f *Finder) FindAll(q BatchQuery) ([]string, error) {
	databases, err := broadcast(q.Databases, len(q.URIs), "database")
	if err != nil {
		return nil, err
	}
	channels, err := broadcast(q.Channels, len(q.URIs), "channel")
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(q.URIs))
	for i, uri := range q.URIs {
		path, err := f.Find(Query{
			URI:      uri,
			Database: databases[i],
			Channel:  channels[i],
			Fields:   q.Fields,
		})
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FindRecord resolves the file of a record. Every resolved field of the
// record is available as a placeholder.
func (f *Finder) FindRecord(r *record.Record) (string, error) {
	fields := r.Abs()
	q := Query{URI: r.URI(), Fields: fields}
	if db, ok := fields[record.FieldDatabase].(string); ok {
		q.Database = db
	}
	if ch, ok := fields[record.FieldChannel]; ok {
		q.Channel = fmt.Sprint(ch)
	}
	return f.Find(q)
}

// Loader returns a record loader producing the record's file path, for use
// as a deferred field such as "audio".
func (f *Finder) Loader() record.Loader {
	return func(r *record.Record) (any, error) {
		return f.FindRecord(r)
	}
}

func (f *Finder) find(q query) (string, error) {
	matches, err := f.space.expand(q)
	if err != nil {
		return "", err
	}
	matches = unique(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w for uri %q", ErrNotFound, q.uri())
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w for uri %q: %s", ErrAmbiguous, q.uri(), strings.Join(matches, ", "))
	}
}

// query carries the placeholder values of one lookup. database is the
// database requested by the caller, used to select mapping keys.
type query struct {
	values   map[string]any
	database string
}

func newQuery(q Query) query {
	values := make(map[string]any, len(q.Fields)+3)
	for k, v := range q.Fields {
		values[k] = v
	}
	values[record.FieldURI] = q.URI
	if q.Database != "" {
		values[record.FieldDatabase] = q.Database
	}
	if q.Channel != "" {
		values[record.FieldChannel] = q.Channel
	}
	return query{values: values, database: q.Database}
}

func (q query) uri() string {
	uri, _ := q.values[record.FieldURI].(string)
	return uri
}

// withDatabase returns a copy of q whose database placeholder is database.
func (q query) withDatabase(database string) query {
	values := make(map[string]any, len(q.values))
	for k, v := range q.values {
		values[k] = v
	}
	values[record.FieldDatabase] = database
	return query{values: values, database: q.database}
}

func (t Template) expand(q query) ([]string, error) {
	pattern, err := record.Substitute(string(t), q.values)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", string(t), err)
	}
	pattern, err = resolve.ExpandHome(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return matches, nil
}

func (l List) expand(q query) ([]string, error) {
	var found []string
	for _, space := range l {
		matches, err := space.expand(q)
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}
	return found, nil
}

func (m *Mapping) expand(q query) ([]string, error) {
	keys := m.Keys
	if _, ok := m.Spaces[q.database]; ok && q.database != "" {
		keys = []string{q.database}
	}

	var found []string
	for _, key := range keys {
		matches, err := m.Spaces[key].expand(q.withDatabase(key))
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}
	return found, nil
}

func broadcast(values []string, n int, name string) ([]string, error) {
	switch len(values) {
	case 0:
		return make([]string, n), nil
	case 1:
		out := make([]string, n)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	case n:
		return values, nil
	}
	return nil, fmt.Errorf("%w: %d %s values for %d uris", ErrMismatchedLength, len(values), name, n)
}

func unique(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFound
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrAmbiguous):
		return metrics.OutcomeAmbiguous
	}
	return metrics.OutcomeError
}
