package cmd

import (
	"slices"
	"strings"
)

// Stage is the pipeline position of an Invocation.
type Stage int

const (
	StageUnresolved Stage = iota
	StageResolved
	StageArgumentsParsed
	StagePreconditionsPassed
	StageExecuted
	StageFailed
)

var stageNames = [...]string{
	StageUnresolved:          "unresolved",
	StageResolved:            "resolved",
	StageArgumentsParsed:     "arguments-parsed",
	StagePreconditionsPassed: "preconditions-passed",
	StageExecuted:            "executed",
	StageFailed:              "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Caller identifies who invoked a command and where. Adapters fill it from
// their transport; preconditions only read it.
type Caller struct {
	UserID    string
	UserName  string
	GuildID   string
	ChannelID string
	// Roles holds role IDs and role names held by the caller in GuildID.
	Roles []string
	Admin bool
}

// Direct reports whether the invocation came from a direct message.
func (c Caller) Direct() bool { return c.GuildID == "" }

// HasRole reports whether role matches one of the caller's role IDs or names.
func (c Caller) HasRole(role string) bool {
	return slices.ContainsFunc(c.Roles, func(r string) bool { return strings.EqualFold(r, role) })
}

// Failure records the stage an invocation failed in and why.
type Failure struct {
	Stage Stage
	Err   error
}

// Invocation carries one end-to-end attempt to resolve and run a command.
// Adapters set Data to their transport payload (e.g. the discordgo session
// and event).
type Invocation struct {
	ID         string
	Body       string
	Identifier string
	Descriptor *Descriptor
	Args       []string
	Raw        string
	Caller     Caller
	Data       any

	Stage   Stage
	Failure *Failure

	segments []segment
}

// Arg returns argument i, or "" and false when absent.
func (inv *Invocation) Arg(i int) (string, bool) {
	if i < 0 || i >= len(inv.Args) {
		return "", false
	}
	return inv.Args[i], true
}

// Rest returns the raw, unsplit argument text starting at argument i with
// escapes left intact. Parsers use it when the final argument may itself
// contain commas.
func (inv *Invocation) Rest(i int) string {
	if i < 0 || i >= len(inv.segments) {
		return ""
	}
	return strings.TrimSpace(inv.Raw[inv.segments[i].start:])
}

// Err returns the failure cause, or nil.
func (inv *Invocation) Err() error {
	if inv.Failure == nil {
		return nil
	}
	return inv.Failure.Err
}

func (inv *Invocation) setArguments(raw string) {
	inv.Raw = raw
	inv.segments = splitSegments(raw)
	inv.Args = make([]string, len(inv.segments))
	for i, s := range inv.segments {
		inv.Args[i] = s.value
	}
}

func (inv *Invocation) fail(err error) {
	inv.Failure = &Failure{Stage: inv.Stage, Err: err}
	inv.Stage = StageFailed
}
