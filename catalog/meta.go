package catalog

import (
	"fmt"
	"iter"
	"strings"

	"github.com/c360studio/protodb/protocol"
	"github.com/c360studio/protodb/record"
	"gopkg.in/yaml.v3"
)

// metaSource is one "Database.Task.Protocol: [subsets...]" entry.
type metaSource struct {
	protocol string
	subsets  []string
}

// metaSubsetFunc returns the generator of an aggregation subset: records of
// the referenced protocol subsets, concatenated in declaration order.
// Referenced protocols are looked up when iteration starts.
func (s *Synthesizer) metaSubsetFunc(src subsetSource) protocol.SubsetFunc {
	return func() iter.Seq2[*record.Record, error] {
		return func(yield func(*record.Record, error) bool) {
			sources, err := decodeMeta(src.entries)
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", src, err))
				return
			}
			if err := s.checkCycle(src.String()); err != nil {
				yield(nil, err)
				return
			}
			if s.lookup == nil {
				yield(nil, fmt.Errorf("%s: no protocol lookup configured", src))
				return
			}

			for _, m := range sources {
				p, err := s.lookup(m.protocol)
				if err != nil {
					yield(nil, fmt.Errorf("%s: %w", src, err))
					return
				}
				for _, subset := range m.subsets {
					for r, err := range p.Iter(protocol.Subset(subset)) {
						if !yield(r, err) || err != nil {
							return
						}
					}
				}
			}
		}
	}
}

// checkCycle walks the aggregation subsets reachable from start and fails
// when one of them refers back to a subset still being expanded.
func (s *Synthesizer) checkCycle(start string) error {
	var (
		path   []string
		active = make(map[string]bool)
		done   = make(map[string]bool)
	)

	var visit func(name string) error
	visit = func(name string) error {
		if active[name] {
			return fmt.Errorf("%w: cyclic meta-protocol %s -> %s",
				ErrMalformedEntry, strings.Join(path, " -> "), name)
		}
		if done[name] {
			return nil
		}
		entries := s.metaEntries(name)
		if entries == nil {
			return nil
		}
		sources, err := decodeMeta(entries)
		if err != nil {
			// Reported by the subset's own iteration.
			return nil
		}

		active[name] = true
		path = append(path, name)
		for _, m := range sources {
			for _, subset := range m.subsets {
				if err := visit(m.protocol + "." + subset); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		active[name] = false
		done[name] = true
		return nil
	}

	return visit(start)
}

func (s *Synthesizer) addMetaEntries(src subsetSource) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	s.meta[src.String()] = src.entries
}

func (s *Synthesizer) metaEntries(name string) *yaml.Node {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	return s.meta[name]
}

func decodeMeta(entries *yaml.Node) ([]metaSource, error) {
	pairs, err := mappingPairs(entries)
	if err != nil {
		return nil, err
	}
	sources := make([]metaSource, 0, len(pairs))
	for _, p := range pairs {
		subsets, err := scalars(p.value)
		if err != nil {
			return nil, fmt.Errorf("protocol %q: %w", p.key, err)
		}
		sources = append(sources, metaSource{protocol: p.key, subsets: subsets})
	}
	return sources, nil
}
