package cmd

import "context"

// Unwrappable is implemented by wrapped commands so the registry can reach the
// underlying command (e.g. to type-assert to PreconditionProvider).
type Unwrappable interface {
	Command
	Unwrap() Command
}

// Wrapped wraps the Action produced by an inner command's Parse. Identity,
// arguments and arity are delegated to the inner command.
type Wrapped struct {
	Command
	RunFunc func(ctx context.Context, inv *Invocation, next Action) error
}

// Parse delegates to the inner command and wraps the resulting Action.
func (w *Wrapped) Parse(ctx context.Context, inv *Invocation) (Action, error) {
	next, err := w.Command.Parse(ctx, inv)
	if err != nil || next == nil || w.RunFunc == nil {
		return next, err
	}
	return func(ctx context.Context, inv *Invocation) error {
		return w.RunFunc(ctx, inv, next)
	}, nil
}

// Unwrap returns the inner command.
func (w *Wrapped) Unwrap() Command { return w.Command }

// Wrap returns a command whose Action runs through run.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation, next Action) error) Command {
	return &Wrapped{Command: c, RunFunc: run}
}

// Root unwraps a command until the underlying command is not Unwrappable.
func Root(c Command) Command {
	for {
		if u, ok := c.(Unwrappable); ok {
			c = u.Unwrap()
		} else {
			return c
		}
	}
}
