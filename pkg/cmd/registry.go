package cmd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned by lookups for an unknown identifier.
var ErrNotFound = errors.New("command not found")

// Registry maps identifiers to one or more descriptors that differ by
// accepted arity. It does not perform dispatch.
type Registry struct {
	mu       sync.RWMutex
	commands map[string][]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string][]*Descriptor)}
}

// Register adds a command wrapped by mws. Identifiers are case-sensitive; a
// second registration under the same identifier must not overlap an existing
// arity range.
func (r *Registry) Register(c Command, mws ...Middleware) error {
	c = Apply(c, mws...)
	d := describe(c)
	if d.Name == "" {
		return errors.New("register: empty command identifier")
	}
	if d.Arity.Min < 0 || (d.Arity.Max != Unbounded && d.Arity.Max < d.Arity.Min) {
		return fmt.Errorf("register %q: invalid arity %s", d.Name, d.Arity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.commands[d.Name] {
		if existing.Arity.overlaps(d.Arity) {
			return fmt.Errorf("register %q: duplicate identifier (arity %s overlaps %s)", d.Name, d.Arity, existing.Arity)
		}
	}
	r.commands[d.Name] = append(r.commands[d.Name], d)
	return nil
}

// MustRegister is Register for startup wiring, where a duplicate is a
// configuration bug.
func (r *Registry) MustRegister(c Command, mws ...Middleware) {
	if err := r.Register(c, mws...); err != nil {
		panic(err)
	}
}

// Has reports whether identifier is registered.
func (r *Registry) Has(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[identifier]
	return ok
}

// Lookup returns the descriptors registered under identifier.
func (r *Registry) Lookup(identifier string) ([]*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.commands[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]*Descriptor(nil), ds...), nil
}

// LookupArity returns the descriptor under identifier accepting argCount
// arguments. It returns ErrNotFound for an unknown identifier and an
// *ArityError listing the valid ranges otherwise.
func (r *Registry) LookupArity(identifier string, argCount int) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.commands[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	valid := make([]Arity, 0, len(ds))
	for _, d := range ds {
		if d.Arity.Accepts(argCount) {
			return d, nil
		}
		valid = append(valid, d.Arity)
	}
	return nil, &ArityError{Identifier: identifier, Got: argCount, Valid: valid}
}

// All returns every descriptor sorted by identifier, then by minimum arity.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Descriptor, 0, len(r.commands))
	for _, ds := range r.commands {
		list = append(list, ds...)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].Arity.Min < list[j].Arity.Min
	})
	return list
}
