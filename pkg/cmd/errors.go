package cmd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch is returned when no identifier candidate is registered.
	ErrNoMatch = errors.New("no matching command")
	// ErrClosed is returned when dispatching on a closed Dispatcher.
	ErrClosed = errors.New("dispatcher closed")
)

// ArityError reports an identifier that exists but not for this argument count.
type ArityError struct {
	Identifier string
	Got        int
	Valid      []Arity
}

func (e *ArityError) Error() string {
	ranges := make([]string, len(e.Valid))
	for i, a := range e.Valid {
		ranges[i] = a.String()
	}
	return fmt.Sprintf("%s: got %d arguments, accepts %s", e.Identifier, e.Got, strings.Join(ranges, " or "))
}

// ArgumentError reports the declared slot that failed to parse.
type ArgumentError struct {
	Index  int
	Name   string
	Reason string
}

// InvalidArgument builds an ArgumentError for slot index. Name is filled in by
// the dispatcher from the descriptor when left empty.
func InvalidArgument(index int, reason string) *ArgumentError {
	return &ArgumentError{Index: index, Reason: reason}
}

func (e *ArgumentError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "invalid value"
	}
	if e.Name == "" {
		return fmt.Sprintf("argument %d: %s", e.Index+1, reason)
	}
	return fmt.Sprintf("argument %d (%s): %s", e.Index+1, e.Name, reason)
}

// PreconditionError carries the message of the first failing precondition.
type PreconditionError struct {
	Check   string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s failed: %s", e.Check, e.Message)
}

// InternalError wraps a fault raised while parsing or executing a handler.
type InternalError struct {
	Panic any
	Err   error
	Stack []byte
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %v", e.Err)
	}
	return fmt.Sprintf("internal error: panic: %v", e.Panic)
}

func (e *InternalError) Unwrap() error { return e.Err }
