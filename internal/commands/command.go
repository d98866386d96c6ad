// Package commands holds the bot's text commands: quotes, macros, help and
// the Elite Dangerous lookups. Commands reply through the Env an adapter
// stores in the invocation, so the same handlers serve Discord and the CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

// Help collections.
const (
	GroupGeneral = "General"
	GroupQuotes  = "Quotes"
	GroupMacros  = "Macros"
	GroupElite   = "Elite Dangerous"
)

// ErrMessageNotFound is returned by fetchers for messages that do not exist
// or cannot be read.
var ErrMessageNotFound = errors.New("message not found")

var errNoEnv = errors.New("invocation carries no reply environment")

// Responder sends replies to the place a command was invoked from.
type Responder interface {
	Send(ctx context.Context, content string, embeds ...*discordgo.MessageEmbed) error
}

// MessageRef addresses a message.
type MessageRef struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
}

// Message is a fetched chat message.
type Message struct {
	Ref         MessageRef
	ChannelName string
	Content     string
	AuthorID    uint64
	AuthorName  string
	Timestamp   time.Time
	Attachments []string
	Embeds      []*discordgo.MessageEmbed
}

// MessageFetcher loads messages referenced by links.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, ref MessageRef) (*Message, error)
}

// AuthorResolver returns the current identity of a guild member, or nil when
// the member is gone.
type AuthorResolver interface {
	Author(ctx context.Context, guildID, userID uint64) *render.Author
}

// Env is what an adapter provides to a running command. Adapters store a
// *Env in cmd.Invocation.Data.
type Env struct {
	Reply   Responder
	Fetcher MessageFetcher
	Authors AuthorResolver
}

func envOf(inv *cmd.Invocation) (*Env, error) {
	env, ok := inv.Data.(*Env)
	if !ok || env == nil || env.Reply == nil {
		return nil, errNoEnv
	}
	return env, nil
}

func (e *Env) fetch(ctx context.Context, ref MessageRef) (*Message, error) {
	if e.Fetcher == nil {
		return nil, ErrMessageNotFound
	}
	return e.Fetcher.FetchMessage(ctx, ref)
}

func (e *Env) author(ctx context.Context, guildID, userID uint64) *render.Author {
	if e.Authors == nil {
		return nil
	}
	return e.Authors.Author(ctx, guildID, userID)
}

func (e *Env) notice(ctx context.Context, text string) error {
	return e.Reply.Send(ctx, "", render.Notice(text))
}

func (e *Env) failure(ctx context.Context, text string) error {
	return e.Reply.Send(ctx, "", render.Error(text))
}

// command is the concrete cmd.Command used by every handler in this package.
type command struct {
	name          string
	description   string
	group         string
	arguments     []cmd.Argument
	arity         cmd.Arity
	mode          cmd.Mode
	preconditions []cmd.Precondition
	parse         func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error)
}

func (c *command) Name() string                      { return c.name }
func (c *command) Description() string               { return c.description }
func (c *command) Group() string                     { return c.group }
func (c *command) Arguments() []cmd.Argument         { return c.arguments }
func (c *command) Arity() cmd.Arity                  { return c.arity }
func (c *command) Mode() cmd.Mode                    { return c.mode }
func (c *command) Preconditions() []cmd.Precondition { return c.preconditions }

func (c *command) Parse(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
	return c.parse(ctx, inv)
}

func guildID(inv *cmd.Invocation) (uint64, error) {
	id, err := strconv.ParseUint(inv.Caller.GuildID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("guild id %q: %w", inv.Caller.GuildID, err)
	}
	return id, nil
}

func tenantOf(ctx context.Context, stores *store.Manager, inv *cmd.Invocation) (*store.Tenant, error) {
	id, err := guildID(inv)
	if err != nil {
		return nil, err
	}
	return stores.Get(ctx, id)
}

// reply wraps a fixed reply as an Action.
func reply(send func(ctx context.Context, env *Env) error) cmd.Action {
	return func(ctx context.Context, inv *cmd.Invocation) error {
		env, err := envOf(inv)
		if err != nil {
			return err
		}
		return send(ctx, env)
	}
}
