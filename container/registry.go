package container

import (
	"time"

	"github.com/samber/lo"

	"github.com/silver2row/ctrl/block"
)

type entry struct {
	label   string
	block   block.Block
	inputs  []string
	outputs []string

	// kind is how the engine executes the entry. For timers it is the wrapped kind.
	kind block.Kind

	period   time.Duration
	repeat   bool
	lastFire time.Time
}

func (e *entry) references(name string) bool {
	return lo.Contains(e.inputs, name) || lo.Contains(e.outputs, name)
}

// timerKind derives the kind a timer executes as from its ports.
func timerKind(inputs, outputs []string) block.Kind {
	switch {
	case len(inputs) > 0 && len(outputs) > 0:
		return block.KindFilter
	case len(outputs) > 0:
		return block.KindSource
	default:
		return block.KindSink
	}
}

// blockRegistry holds the entries of one kind in registration order.
type blockRegistry struct {
	kind    block.Kind
	entries []*entry
}

func newBlockRegistry(kind block.Kind) *blockRegistry {
	return &blockRegistry{kind: kind}
}

// add registers e. An entry already registered under the same label is replaced and the new
// entry goes to the end of the registration order.
func (r *blockRegistry) add(e *entry) (replaced *entry) {
	if old, i, ok := lo.FindIndexOf(r.entries, func(x *entry) bool { return x.label == e.label }); ok {
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		replaced = old
	}
	r.entries = append(r.entries, e)
	return replaced
}

func (r *blockRegistry) remove(label string) (*entry, error) {
	old, i, ok := lo.FindIndexOf(r.entries, func(x *entry) bool { return x.label == label })
	if !ok {
		return nil, &block.UnknownBlockError{Kind: r.kind, Label: label}
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return old, nil
}

func (r *blockRegistry) get(label string) (*entry, error) {
	e, ok := lo.Find(r.entries, func(x *entry) bool { return x.label == label })
	if !ok {
		return nil, &block.UnknownBlockError{Kind: r.kind, Label: label}
	}
	return e, nil
}

func (r *blockRegistry) labels() []string {
	return lo.Map(r.entries, func(e *entry, _ int) string { return e.label })
}

// referencing returns the first entry wired to the signal name.
func (r *blockRegistry) referencing(name string) (*entry, bool) {
	return lo.Find(r.entries, func(e *entry) bool { return e.references(name) })
}

func (r *blockRegistry) clear() {
	r.entries = nil
}
