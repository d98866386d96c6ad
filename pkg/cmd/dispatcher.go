package cmd

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type job struct {
	ctx    context.Context
	inv    *Invocation
	action Action
	done   chan error
}

// Dispatcher runs the per-invocation pipeline
// Unresolved → Resolved → ArgumentsParsed → PreconditionsPassed → Executed.
// Sequential commands execute on a single coordination goroutine; parsing
// and precondition checks always run on the caller's goroutine.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger

	jobs      chan job
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher over registry. Call Close to stop its
// coordination goroutine.
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		registry: registry,
		logger:   logger,
		jobs:     make(chan job),
		quit:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.coordinate()
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Close stops the coordination goroutine after the running job, if any.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
}

// Dispatch resolves and runs body (the message with its prefix removed).
// The returned invocation reports the stage reached and, on failure, why.
// Dispatch never panics because of a handler.
func (d *Dispatcher) Dispatch(ctx context.Context, body string, caller Caller, data any) *Invocation {
	inv := &Invocation{
		ID:     uuid.NewString(),
		Body:   body,
		Caller: caller,
		Data:   data,
		Stage:  StageUnresolved,
	}
	start := time.Now()
	d.run(ctx, inv)

	fields := []zap.Field{
		zap.String("invocation", inv.ID),
		zap.String("identifier", inv.Identifier),
		zap.String("guild", caller.GuildID),
		zap.String("user", caller.UserID),
		zap.Stringer("stage", inv.Stage),
		zap.Duration("took", time.Since(start)),
	}
	switch {
	case inv.Failure == nil:
		d.logger.Debug("invocation finished", fields...)
	case errors.Is(inv.Failure.Err, ErrNoMatch):
		d.logger.Debug("no command matched", fields...)
	default:
		var internal *InternalError
		if errors.As(inv.Failure.Err, &internal) && internal.Stack != nil {
			fields = append(fields, zap.ByteString("stack", internal.Stack))
		}
		d.logger.Info("invocation failed", append(fields,
			zap.Stringer("failed_at", inv.Failure.Stage),
			zap.Error(inv.Failure.Err))...)
	}
	return inv
}

func (d *Dispatcher) run(ctx context.Context, inv *Invocation) {
	identifier, remainder, ok := Resolve(inv.Body, d.registry.Has)
	if !ok {
		inv.fail(ErrNoMatch)
		return
	}
	inv.Identifier = identifier
	inv.setArguments(remainder)

	desc, err := d.registry.LookupArity(identifier, len(inv.Args))
	if err != nil {
		inv.fail(err)
		return
	}
	inv.Descriptor = desc
	inv.Stage = StageResolved

	action, err := safeParse(ctx, desc.Command, inv)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) && argErr.Name == "" {
			argErr.Name = desc.ArgumentName(argErr.Index)
		}
		inv.fail(err)
		return
	}
	inv.Stage = StageArgumentsParsed

	if err := checkPreconditions(ctx, inv, desc.Preconditions); err != nil {
		inv.fail(err)
		return
	}
	inv.Stage = StagePreconditionsPassed

	if action == nil {
		inv.Stage = StageExecuted
		return
	}
	if desc.Mode == Sequential {
		err = d.submit(ctx, inv, action)
	} else {
		err = safeRun(ctx, action, inv)
	}
	if err != nil {
		inv.fail(err)
		return
	}
	inv.Stage = StageExecuted
}

func (d *Dispatcher) submit(ctx context.Context, inv *Invocation, action Action) error {
	j := job{ctx: ctx, inv: inv, action: action, done: make(chan error, 1)}
	select {
	case d.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrClosed
	}
	return <-j.done
}

func (d *Dispatcher) coordinate() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.jobs:
			if err := j.ctx.Err(); err != nil {
				j.done <- err
				continue
			}
			j.done <- safeRun(j.ctx, j.action, j.inv)
		}
	}
}

func safeParse(ctx context.Context, c Command, inv *Invocation) (action Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			action, err = nil, &InternalError{Panic: r, Stack: debug.Stack()}
		}
	}()
	return c.Parse(ctx, inv)
}

func safeRun(ctx context.Context, action Action, inv *Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Panic: r, Stack: debug.Stack()}
		}
	}()
	return action(ctx, inv)
}

// UserMessager is implemented by errors that carry their own user-facing text.
type UserMessager interface {
	UserMessage() string
}

// Describe renders a failed invocation as a user-facing message for prefix.
// It returns "" for ErrNoMatch, whose reply policy belongs to the adapter.
func Describe(inv *Invocation, prefix string) string {
	err := inv.Err()
	if err == nil || errors.Is(err, ErrNoMatch) {
		return ""
	}

	var (
		arity    *ArityError
		argErr   *ArgumentError
		pre      *PreconditionError
		internal *InternalError
		user     UserMessager
	)
	switch {
	case errors.As(err, &arity):
		return fmt.Sprintf("Wrong number of arguments for `%s%s` (got %d, expected %s). Use `%shelp %s` for usage.",
			prefix, arity.Identifier, arity.Got, joinArities(arity.Valid), prefix, arity.Identifier)
	case errors.As(err, &argErr):
		msg := fmt.Sprintf("Could not parse argument `%s`", argErr.Name)
		if argErr.Reason != "" {
			msg += ": " + argErr.Reason
		}
		if inv.Descriptor != nil {
			msg += fmt.Sprintf("\nUsage: `%s`", inv.Descriptor.Usage(prefix))
		}
		return msg
	case errors.As(err, &pre):
		return pre.Message
	case errors.As(err, &internal):
		return "An internal error occurred while running this command."
	case errors.As(err, &user):
		return user.UserMessage()
	case errors.Is(err, context.DeadlineExceeded):
		return "The command timed out."
	default:
		return fmt.Sprintf("Command failed: %v", err)
	}
}

func joinArities(as []Arity) string {
	s := ""
	for i, a := range as {
		if i > 0 {
			s += " or "
		}
		s += a.String()
	}
	return s
}
