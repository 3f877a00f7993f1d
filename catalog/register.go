package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/protodb/loader"
	"github.com/c360studio/protodb/metrics"
	"github.com/c360studio/protodb/protocol"
	"github.com/google/uuid"
)

// Options configures registration.
type Options struct {
	// ConfigPath is the catalog document. A missing file registers nothing.
	ConfigPath string

	// Loaders maps file suffixes to loaders (default: loader.DefaultRegistry).
	Loaders *loader.Registry

	// Logger receives configuration warnings (default: slog.Default()).
	Logger *slog.Logger

	// Metrics is optional instrumentation.
	Metrics *metrics.Metrics

	// Lookup overrides how aggregation protocols resolve their references.
	// By default they resolve against the registry being built.
	Lookup Lookup

	// CacheEagerLoaders keeps eager loader instances across iterations of
	// the same subset. Off by default: each iteration re-instantiates them.
	CacheEagerLoaders bool

	// MemoizeFields makes records cache deferred field values on first
	// access. Off by default: every access re-runs the loader.
	MemoizeFields bool
}

func (o Options) withDefaults() Options {
	if o.Loaders == nil {
		o.Loaders = loader.DefaultRegistry
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ProtocolEntry is one protocol registered in a database.
type ProtocolEntry struct {
	Task     string
	Name     string
	Protocol *protocol.Protocol
}

// DatabaseType describes a database built from declarations. New
// instantiates it.
type DatabaseType struct {
	Name    string
	entries []ProtocolEntry
}

// New creates a database instance with every protocol registered.
func (t *DatabaseType) New() *protocol.Database {
	db := protocol.NewDatabase(t.Name)
	for _, e := range t.entries {
		db.RegisterProtocol(e.Task, e.Name, e.Protocol)
	}
	return db
}

// Entries returns the registered protocols in declaration order.
func (t *DatabaseType) Entries() []ProtocolEntry {
	out := make([]ProtocolEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Registry is the outcome of one registration run: database types by name
// and, per task, the set of databases declaring it.
type Registry struct {
	// ID identifies the registration run in logs.
	ID         string
	ConfigPath string

	databases map[string]*DatabaseType
	order     []string
	tasks     map[string]map[string]struct{}
}

func newRegistry(configPath string) *Registry {
	return &Registry{
		ID:         uuid.New().String(),
		ConfigPath: configPath,
		databases:  make(map[string]*DatabaseType),
		tasks:      make(map[string]map[string]struct{}),
	}
}

// Databases returns database names in registration order.
func (r *Registry) Databases() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Database returns a database type by name.
func (r *Registry) Database(name string) (*DatabaseType, error) {
	t, ok := r.databases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}
	return t, nil
}

// Tasks returns task names in lexical order.
func (r *Registry) Tasks() []string {
	out := make([]string, 0, len(r.tasks))
	for task := range r.tasks {
		out = append(out, task)
	}
	sort.Strings(out)
	return out
}

// TaskDatabases returns the databases declaring task, in lexical order.
func (r *Registry) TaskDatabases(task string) []string {
	set := r.tasks[task]
	out := make([]string, 0, len(set))
	for db := range set {
		out = append(out, db)
	}
	sort.Strings(out)
	return out
}

// Protocol resolves "Database.Task.Protocol". The protocol part may itself
// contain dots.
func (r *Registry) Protocol(name string) (*protocol.Protocol, error) {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProtocolName, name)
	}
	t, err := r.Database(parts[0])
	if err != nil {
		return nil, err
	}
	for _, e := range t.entries {
		if e.Task == parts[1] && e.Name == parts[2] {
			return e.Protocol, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", protocol.ErrProtocolNotFound, name)
}

func (r *Registry) addTask(task, database string) {
	set, ok := r.tasks[task]
	if !ok {
		set = make(map[string]struct{})
		r.tasks[task] = set
	}
	set[database] = struct{}{}
}

func (r *Registry) setDatabase(t *DatabaseType) {
	if _, ok := r.databases[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.databases[t.Name] = t
}

// Register reads the catalog document at opts.ConfigPath and builds every
// declared protocol. Only an unreadable or unparsable document is an error;
// a missing one yields an empty registry.
func Register(opts Options) (*Registry, error) {
	doc, err := LoadDocument(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return RegisterDocument(doc, opts), nil
}

// RegisterDocument builds every protocol declared in doc. Unsupported tasks
// and subsets are logged and skipped. The aggregation database is processed
// after all others wherever it appears in the document.
func RegisterDocument(doc *Document, opts Options) *Registry {
	opts = opts.withDefaults()
	if opts.ConfigPath == "" {
		opts.ConfigPath = doc.Path
	}

	reg := newRegistry(opts.ConfigPath)
	lookup := opts.Lookup
	if lookup == nil {
		lookup = reg.Protocol
	}
	logger := opts.Logger.With("registration", reg.ID)
	opts.Logger = logger
	synth := NewSynthesizer(opts, lookup)

	for _, db := range orderDatabases(doc.Databases) {
		t := &DatabaseType{Name: db.Name}
		for _, task := range db.Tasks {
			for _, decl := range task.Protocols {
				p := synth.Synthesize(db.Name, task.Name, decl.Name, decl.Entries)
				if p == nil {
					continue
				}
				t.entries = append(t.entries, ProtocolEntry{Task: task.Name, Name: decl.Name, Protocol: p})
				reg.addTask(task.Name, db.Name)
				opts.Metrics.ProtocolRegistered(db.Name, task.Name)
			}
		}
		reg.setDatabase(t)
		logger.Debug("Registered database", "database", db.Name, "protocols", len(t.entries))
	}

	logger.Info("Registered custom protocols",
		"config", opts.ConfigPath,
		"databases", len(reg.order),
		"tasks", len(reg.tasks))
	return reg
}

// orderDatabases moves the aggregation database to the end.
func orderDatabases(decls []DatabaseDecl) []DatabaseDecl {
	out := make([]DatabaseDecl, 0, len(decls))
	var meta *DatabaseDecl
	for i := range decls {
		if decls[i].Name == MetaDatabase {
			meta = &decls[i]
			continue
		}
		out = append(out, decls[i])
	}
	if meta != nil {
		out = append(out, *meta)
	}
	return out
}
