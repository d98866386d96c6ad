// Package cmd provides a transport-agnostic command core: identifier
// resolution, argument splitting, arity-aware lookup, preconditions and a
// staged dispatcher. How commands reach users (Discord, CLI) is defined by
// adapters that build an Invocation and render its outcome.
package cmd

import (
	"context"
	"fmt"
)

// Unbounded marks an Arity without an upper limit.
const Unbounded = -1

// Arity is the accepted argument-count range of a command.
type Arity struct {
	Min int
	Max int
}

// Exactly accepts n arguments.
func Exactly(n int) Arity { return Arity{Min: n, Max: n} }

// Between accepts min..max arguments; pass Unbounded as max for no limit.
func Between(min, max int) Arity { return Arity{Min: min, Max: max} }

// Accepts reports whether n arguments fall within the range.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && (a.Max == Unbounded || n <= a.Max)
}

func (a Arity) overlaps(b Arity) bool {
	aMax, bMax := a.Max, b.Max
	if aMax == Unbounded {
		aMax = int(^uint(0) >> 1)
	}
	if bMax == Unbounded {
		bMax = int(^uint(0) >> 1)
	}
	return a.Min <= bMax && b.Min <= aMax
}

func (a Arity) String() string {
	switch {
	case a.Max == Unbounded:
		return fmt.Sprintf("%d+", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("%d", a.Min)
	default:
		return fmt.Sprintf("%d-%d", a.Min, a.Max)
	}
}

// Argument describes one declared argument slot, used for usage text and for
// naming the slot in argument errors.
type Argument struct {
	Name        string
	Description string
	Optional    bool
}

// Mode declares how a command's execution stage is scheduled.
type Mode int

const (
	// Concurrent commands execute on the invoking goroutine.
	Concurrent Mode = iota
	// Sequential commands execute one at a time on the dispatcher's
	// coordination goroutine.
	Sequential
)

func (m Mode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "concurrent"
}

// Action is the executable result of a successful parse.
type Action func(ctx context.Context, inv *Invocation) error

// Command is the universal contract: identity, declared arguments and a
// parser that turns raw arguments into an Action. Parsed state lives in the
// returned Action's closure, never on the command itself.
type Command interface {
	Name() string
	Description() string
	Arguments() []Argument
	Arity() Arity
	Parse(ctx context.Context, inv *Invocation) (Action, error)
}

// PreconditionProvider is implemented by commands gated by authorization checks.
type PreconditionProvider interface {
	Preconditions() []Precondition
}

// ModeProvider is implemented by commands that are not Concurrent.
type ModeProvider interface {
	Mode() Mode
}

// GroupProvider is implemented by commands listed under a help collection.
type GroupProvider interface {
	Group() string
}

// Descriptor is the immutable registration record of a command.
type Descriptor struct {
	Name          string
	Description   string
	Group         string
	Arguments     []Argument
	Arity         Arity
	Mode          Mode
	Preconditions []Precondition
	Command       Command
}

func describe(c Command) *Descriptor {
	root := Root(c)
	d := &Descriptor{
		Name:        c.Name(),
		Description: c.Description(),
		Arguments:   append([]Argument(nil), c.Arguments()...),
		Arity:       c.Arity(),
		Command:     c,
	}
	if p, ok := root.(PreconditionProvider); ok {
		d.Preconditions = append([]Precondition(nil), p.Preconditions()...)
	}
	if m, ok := root.(ModeProvider); ok {
		d.Mode = m.Mode()
	}
	if g, ok := root.(GroupProvider); ok {
		d.Group = g.Group()
	}
	return d
}

// ArgumentName returns the declared name of slot i, or a positional fallback.
func (d *Descriptor) ArgumentName(i int) string {
	if i >= 0 && i < len(d.Arguments) {
		return d.Arguments[i].Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// Usage formats the command syntax for prefix, e.g. "/quote add: Message Link".
func (d *Descriptor) Usage(prefix string) string {
	if len(d.Arguments) == 0 {
		return prefix + d.Name
	}
	s := prefix + d.Name + ":"
	for i, a := range d.Arguments {
		if i > 0 {
			s += ","
		}
		if a.Optional {
			s += " [" + a.Name + "]"
		} else {
			s += " " + a.Name
		}
	}
	return s
}
