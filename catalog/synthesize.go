package catalog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/c360studio/protodb/loader"
	"github.com/c360studio/protodb/metrics"
	"github.com/c360studio/protodb/protocol"
	"gopkg.in/yaml.v3"
)

// MetaDatabase is the reserved name of the aggregation database. Its
// protocols concatenate subsets of protocols declared elsewhere, so it is
// always registered after every other database.
const MetaDatabase = "X"

// DeferralMarker prefixes a field declaration that is a per-record path
// template rather than a file path.
const DeferralMarker = "_"

// Lookup resolves a "Database.Task.Protocol" name to a protocol.
type Lookup func(name string) (*protocol.Protocol, error)

// Synthesizer builds protocols from their declared entries.
type Synthesizer struct {
	configPath string
	configDir  string
	loaders    *loader.Registry
	logger     *slog.Logger
	metrics    *metrics.Metrics
	lookup     Lookup

	// Aggregation subsets by "Database.Task.Protocol.subset".
	metaMu sync.RWMutex
	meta   map[string]*yaml.Node

	cacheEagerLoaders bool
	memoizeFields     bool
}

// NewSynthesizer creates a synthesizer for declarations read from
// opts.ConfigPath. lookup resolves meta-protocol references.
func NewSynthesizer(opts Options, lookup Lookup) *Synthesizer {
	opts = opts.withDefaults()
	return &Synthesizer{
		configPath:        opts.ConfigPath,
		configDir:         filepath.Dir(opts.ConfigPath),
		loaders:           opts.Loaders,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
		lookup:            lookup,
		meta:              make(map[string]*yaml.Node),
		cacheEagerLoaders: opts.CacheEagerLoaders,
		memoizeFields:     opts.MemoizeFields,
	}
}

// Synthesize builds one protocol. It returns nil, after logging a warning,
// when the task has no capability or the entries are not a mapping. Subsets
// with unrecognized names are skipped individually.
func (s *Synthesizer) Synthesize(database, task, name string, entries *yaml.Node) *protocol.Protocol {
	log := s.logger.With("database", database, "task", task, "protocol", name, "config", s.configPath)

	capability, ok := protocol.LookupCapability(task)
	if !ok {
		log.Warn("Ignoring protocols of unsupported task",
			"error", fmt.Errorf("%w: %s", ErrUnsupportedTask, task))
		s.metrics.ProtocolSkipped("unsupported_task")
		return nil
	}

	// Collections have no subsets; their entries describe a single "files" subset.
	if capability.IsCollection() {
		entries = &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(protocol.SubsetFiles)},
				entries,
			},
		}
	}

	subsets, err := mappingPairs(entries)
	if err != nil {
		log.Warn("Ignoring malformed protocol", "error", err)
		s.metrics.ProtocolSkipped("malformed_protocol")
		return nil
	}

	p := protocol.New(database, task, name, capability)
	for _, sub := range subsets {
		subset, ok := protocol.ParseSubset(sub.key)
		if !ok {
			log.Warn("Ignoring unsupported subset",
				"subset", sub.key,
				"error", fmt.Errorf("%w: %s", ErrUnsupportedSubset, sub.key))
			s.metrics.ProtocolSkipped("unsupported_subset")
			continue
		}

		src := subsetSource{
			database: database,
			task:     task,
			protocol: name,
			subset:   subset,
			entries:  sub.value,
		}
		if database == MetaDatabase {
			s.addMetaEntries(src)
			p.Bind(subset, s.metaSubsetFunc(src))
		} else {
			p.Bind(subset, s.subsetFunc(src))
		}
	}

	return p
}

// subsetSource identifies one declared subset and its raw entries.
type subsetSource struct {
	database string
	task     string
	protocol string
	subset   protocol.Subset
	entries  *yaml.Node
}

func (src subsetSource) String() string {
	return fmt.Sprintf("%s.%s.%s.%s", src.database, src.task, src.protocol, src.subset)
}
