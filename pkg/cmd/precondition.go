package cmd

import (
	"context"
	"fmt"
)

// Precondition is a boolean authorization gate evaluated after argument
// parsing and before execution.
type Precondition struct {
	Name    string
	Message string
	Check   func(ctx context.Context, inv *Invocation) bool
}

// GuildOnly passes when the invocation comes from a guild channel.
func GuildOnly() Precondition {
	return Precondition{
		Name:    "guild-only",
		Message: "This command can only be used in a server!",
		Check: func(_ context.Context, inv *Invocation) bool {
			return !inv.Caller.Direct()
		},
	}
}

// HasRole passes for administrators and for callers holding role, matched
// by ID or name.
func HasRole(role string) Precondition {
	return Precondition{
		Name:    "has-role:" + role,
		Message: fmt.Sprintf("You need the `%s` role to use this command!", role),
		Check: func(_ context.Context, inv *Invocation) bool {
			return inv.Caller.Admin || inv.Caller.HasRole(role)
		},
	}
}

// checkPreconditions returns a *PreconditionError for the first failing check.
func checkPreconditions(ctx context.Context, inv *Invocation, checks []Precondition) error {
	for _, p := range checks {
		if p.Check == nil || p.Check(ctx, inv) {
			continue
		}
		return &PreconditionError{Check: p.Name, Message: p.Message}
	}
	return nil
}
