package finder

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SearchSpace is the configured tree of path templates: a Template, a List
// of search spaces, or a per-database Mapping.
type SearchSpace interface {
	expand(q query) ([]string, error)
}

// Template is a path template with {placeholder} fields and glob patterns.
type Template string

// List is the union of its members.
type List []SearchSpace

// Mapping restricts the search to one database key when the query names a
// declared database, and otherwise searches every key in order.
type Mapping struct {
	Keys   []string
	Spaces map[string]SearchSpace
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{Spaces: make(map[string]SearchSpace)}
}

// Set adds or replaces the search space of database. Insertion order is kept.
func (m *Mapping) Set(database string, space SearchSpace) *Mapping {
	if _, ok := m.Spaces[database]; !ok {
		m.Keys = append(m.Keys, database)
	}
	m.Spaces[database] = space
	return m
}

// ParseSpace decodes a search space from YAML.
func ParseSpace(data []byte) (SearchSpace, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse finder config: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedConfig)
	}
	return decodeSpace(root.Content[0])
}

func decodeSpace(n *yaml.Node) (SearchSpace, error) {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil, fmt.Errorf("%w: null template at line %d", ErrMalformedConfig, n.Line)
		}
		return Template(n.Value), nil

	case yaml.SequenceNode:
		list := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			space, err := decodeSpace(item)
			if err != nil {
				return nil, err
			}
			list = append(list, space)
		}
		return list, nil

	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: non-scalar database key at line %d", ErrMalformedConfig, key.Line)
			}
			space, err := decodeSpace(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("database %s: %w", key.Value, err)
			}
			m.Set(key.Value, space)
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: unexpected node at line %d", ErrMalformedConfig, n.Line)
}
