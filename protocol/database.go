package protocol

import (
	"errors"
	"fmt"
	"sort"
)

// ErrProtocolNotFound is returned for an unknown task or protocol name.
var ErrProtocolNotFound = errors.New("protocol not found")

// Database is an instance grouping protocols by task.
type Database struct {
	Name string

	tasks     []string
	protocols map[string]map[string]*Protocol
	order     map[string][]string
}

// NewDatabase creates an empty database.
func NewDatabase(name string) *Database {
	return &Database{
		Name:      name,
		protocols: make(map[string]map[string]*Protocol),
		order:     make(map[string][]string),
	}
}

// RegisterProtocol adds a protocol under task. Registering the same name
// twice replaces the earlier protocol.
func (d *Database) RegisterProtocol(task, name string, p *Protocol) {
	byName, ok := d.protocols[task]
	if !ok {
		byName = make(map[string]*Protocol)
		d.protocols[task] = byName
		d.tasks = append(d.tasks, task)
	}
	if _, exists := byName[name]; !exists {
		d.order[task] = append(d.order[task], name)
	}
	byName[name] = p
}

// Protocol returns the protocol registered under task and name.
func (d *Database) Protocol(task, name string) (*Protocol, error) {
	p, ok := d.protocols[task][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s.%s", ErrProtocolNotFound, d.Name, task, name)
	}
	return p, nil
}

// Tasks returns task names in registration order.
func (d *Database) Tasks() []string {
	out := make([]string, len(d.tasks))
	copy(out, d.tasks)
	return out
}

// Protocols returns the protocol names of task in registration order.
func (d *Database) Protocols(task string) []string {
	out := make([]string, len(d.order[task]))
	copy(out, d.order[task])
	return out
}

// SortedTasks returns task names in lexical order.
func (d *Database) SortedTasks() []string {
	out := d.Tasks()
	sort.Strings(out)
	return out
}
