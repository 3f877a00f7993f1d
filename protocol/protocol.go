package protocol

import (
	"errors"
	"fmt"
	"iter"

	"github.com/c360studio/protodb/record"
)

// ErrSubsetNotDeclared is returned when iterating a subset the protocol does
// not declare.
var ErrSubsetNotDeclared = errors.New("subset not declared")

// SubsetFunc builds a fresh record sequence each time it is called. Setup
// failures are reported as a (nil, err) pair before any record.
type SubsetFunc func() iter.Seq2[*record.Record, error]

type subsetEntry struct {
	subset Subset
	fn     SubsetFunc
}

// Protocol is a named set of subsets for one task of one database.
type Protocol struct {
	Database   string
	Task       string
	Name       string
	Capability Capability

	subsets []subsetEntry
}

// New creates a protocol with no subsets.
func New(database, task, name string, capability Capability) *Protocol {
	return &Protocol{
		Database:   database,
		Task:       task,
		Name:       name,
		Capability: capability,
	}
}

// FullName returns "Database.Task.Protocol".
func (p *Protocol) FullName() string {
	return p.Database + "." + p.Task + "." + p.Name
}

// Bind attaches the generator for subset, replacing a previous one.
func (p *Protocol) Bind(subset Subset, fn SubsetFunc) {
	for i := range p.subsets {
		if p.subsets[i].subset == subset {
			p.subsets[i].fn = fn
			return
		}
	}
	p.subsets = append(p.subsets, subsetEntry{subset: subset, fn: fn})
}

// Has reports whether subset is declared.
func (p *Protocol) Has(subset Subset) bool {
	return p.lookup(subset) != nil
}

// Subsets returns declared subsets in declaration order.
func (p *Protocol) Subsets() []Subset {
	out := make([]Subset, len(p.subsets))
	for i, e := range p.subsets {
		out[i] = e.subset
	}
	return out
}

// Iter returns a fresh record sequence for subset.
func (p *Protocol) Iter(subset Subset) iter.Seq2[*record.Record, error] {
	fn := p.lookup(subset)
	if fn == nil {
		err := fmt.Errorf("%w: %s has no %q subset", ErrSubsetNotDeclared, p.FullName(), subset)
		return func(yield func(*record.Record, error) bool) {
			yield(nil, err)
		}
	}
	return fn()
}

// Files iterates the "files" subset.
func (p *Protocol) Files() iter.Seq2[*record.Record, error] { return p.Iter(SubsetFiles) }

// Train iterates the "train" subset.
func (p *Protocol) Train() iter.Seq2[*record.Record, error] { return p.Iter(SubsetTrain) }

// Development iterates the "development" subset.
func (p *Protocol) Development() iter.Seq2[*record.Record, error] { return p.Iter(SubsetDevelopment) }

// Test iterates the "test" subset.
func (p *Protocol) Test() iter.Seq2[*record.Record, error] { return p.Iter(SubsetTest) }

func (p *Protocol) lookup(subset Subset) SubsetFunc {
	for _, e := range p.subsets {
		if e.subset == subset {
			return e.fn
		}
	}
	return nil
}

// Collect drains seq, stopping at the first error.
func Collect(seq iter.Seq2[*record.Record, error]) ([]*record.Record, error) {
	var out []*record.Record
	for r, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
