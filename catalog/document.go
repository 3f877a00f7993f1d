package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RootKey is the top-level key holding protocol declarations.
const RootKey = "Protocols"

// Document is a parsed catalog document. Declarations keep document order.
type Document struct {
	// Path is where the document was read from. Relative declarations are
	// resolved against its directory.
	Path      string
	Databases []DatabaseDecl
}

// DatabaseDecl declares the tasks of one database.
type DatabaseDecl struct {
	Name  string
	Tasks []TaskDecl
}

// TaskDecl declares the protocols of one task.
type TaskDecl struct {
	Name      string
	Protocols []ProtocolDecl
}

// ProtocolDecl keeps a protocol's raw entries. They are interpreted during
// synthesis, where shape errors only affect this protocol.
type ProtocolDecl struct {
	Name    string
	Entries *yaml.Node
}

// LoadDocument reads and parses a catalog document. A missing file yields an
// empty document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Document{Path: path}, nil
		}
		return nil, fmt.Errorf("read catalog document: %w", err)
	}
	return ParseDocument(data, path)
}

// ParseDocument parses catalog YAML. path is recorded for relative path
// resolution and messages.
func ParseDocument(data []byte, path string) (*Document, error) {
	doc := &Document{Path: path}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse catalog document %s: %w", path, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := deref(root.Content[0])
	if isNull(top) {
		return doc, nil
	}
	topPairs, err := mappingPairs(top)
	if err != nil {
		return nil, fmt.Errorf("%s: document root: %w", path, err)
	}

	var protocols *yaml.Node
	for _, p := range topPairs {
		if p.key == RootKey {
			protocols = p.value
		}
	}
	if protocols == nil || isNull(protocols) {
		return doc, nil
	}

	databases, err := mappingPairs(protocols)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, RootKey, err)
	}

	for _, db := range databases {
		decl := DatabaseDecl{Name: db.key}
		tasks, err := mappingPairs(db.value)
		if err != nil {
			return nil, fmt.Errorf("%s: database %s: %w", path, db.key, err)
		}
		for _, task := range tasks {
			taskDecl := TaskDecl{Name: task.key}
			protocols, err := mappingPairs(task.value)
			if err != nil {
				return nil, fmt.Errorf("%s: %s.%s: %w", path, db.key, task.key, err)
			}
			for _, p := range protocols {
				taskDecl.Protocols = append(taskDecl.Protocols, ProtocolDecl{Name: p.key, Entries: p.value})
			}
			decl.Tasks = append(decl.Tasks, taskDecl)
		}
		doc.Databases = append(doc.Databases, decl)
	}

	return doc, nil
}

type pair struct {
	key   string
	value *yaml.Node
}

// mappingPairs returns the key/value pairs of a mapping node in order.
// A null node is an empty mapping.
func mappingPairs(n *yaml.Node) ([]pair, error) {
	n = deref(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping at line %d", ErrMalformedEntry, n.Line)
	}
	pairs := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := deref(n.Content[i])
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: non-scalar key at line %d", ErrMalformedEntry, key.Line)
		}
		pairs = append(pairs, pair{key: key.Value, value: deref(n.Content[i+1])})
	}
	return pairs, nil
}

// scalar returns the string value of a scalar node.
func scalar(n *yaml.Node) (string, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		line := 0
		if n != nil {
			line = n.Line
		}
		return "", fmt.Errorf("%w: expected a string at line %d", ErrMalformedEntry, line)
	}
	return n.Value, nil
}

// scalars returns the values of a sequence of scalars. A single scalar is a
// one-element sequence.
func scalars(n *yaml.Node) ([]string, error) {
	n = deref(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		s, err := scalar(n)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	if n == nil || n.Kind != yaml.SequenceNode {
		line := 0
		if n != nil {
			line = n.Line
		}
		return nil, fmt.Errorf("%w: expected a list at line %d", ErrMalformedEntry, line)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		s, err := scalar(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}
