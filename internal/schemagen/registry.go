package schemagen

import (
	"sort"

	"opencrud-gen/internal/datamodel"
)

// typeKey identifies one generator request: the purpose, the datamodel type
// it is generated from and, for nested relation inputs and scalar list
// inputs, the field that shapes it.
type typeKey struct {
	purpose Purpose
	model   *datamodel.Type
	field   string
}

func (k typeKey) String() string {
	s := k.purpose.String()
	if k.model != nil {
		s += " of " + k.model.Name
	}
	if k.field != "" {
		s += " (" + k.field + ")"
	}
	return s
}

type entryState int

const (
	stateInProgress entryState = iota
	stateDone
)

type entry struct {
	def   *TypeDef
	key   typeKey
	state entryState
}

// Registry maps generated type names to their single definition. An entry is
// registered as in progress before its fields are built, so requests that
// cycle back to it resolve to the same name and terminate.
type Registry struct {
	entries map[string]*entry
	order   []string
}

// NewRegistry returns an empty registry scoped to one generation run.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) begin(def *TypeDef, key typeKey) {
	r.entries[def.Name] = &entry{def: def, key: key, state: stateInProgress}
	r.order = append(r.order, def.Name)
}

func (r *Registry) complete(name string) {
	if e, ok := r.entries[name]; ok {
		e.state = stateDone
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*TypeDef, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.def, true
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.order)
}

// Types returns all completed definitions sorted by name.
func (r *Registry) Types() []*TypeDef {
	out := make([]*TypeDef, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; e.state == stateDone {
			out = append(out, e.def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
