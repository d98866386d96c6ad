package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

func parseQuoteID(inv *cmd.Invocation, slot int) (int, error) {
	raw, _ := inv.Arg(slot)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, cmd.InvalidArgument(slot, "Not a valid quote id!")
	}
	return id, nil
}

func sendQuote(ctx context.Context, env *Env, q store.Quote) error {
	return env.Reply.Send(ctx, "", render.Quote(q, env.author(ctx, q.GuildID, q.AuthorID)))
}

func newQuoteCommand(d Deps) cmd.Command {
	return &command{
		name:        "quote",
		description: "Shows a stored quote, or a random one when no id is given",
		group:       GroupQuotes,
		arguments: []cmd.Argument{
			{Name: "Id", Description: "The id of the quote", Optional: true},
		},
		arity:         cmd.Between(0, 1),
		mode:          cmd.Sequential,
		preconditions: []cmd.Precondition{cmd.GuildOnly()},
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			if inv.Caller.Direct() {
				return nil, nil
			}
			tenant, err := tenantOf(ctx, d.Stores, inv)
			if err != nil {
				return nil, err
			}

			id := -1
			if len(inv.Args) == 1 {
				if id, err = parseQuoteID(inv, 0); err != nil {
					return nil, err
				}
				if next := tenant.NextQuoteID(); id >= next {
					return nil, cmd.InvalidArgument(0, fmt.Sprintf("Out of range! Only `%d` quotes stored!", next))
				}
			}

			return reply(func(ctx context.Context, env *Env) error {
				if id < 0 {
					q, ok := tenant.RandomQuote()
					if !ok {
						return env.failure(ctx, "No quotes saved for this guild!")
					}
					return sendQuote(ctx, env, q)
				}
				q, ok := tenant.Quote(id)
				if !ok {
					return env.failure(ctx, fmt.Sprintf("Could not locate a Quote with Id `%d`!", id))
				}
				return sendQuote(ctx, env, q)
			}), nil
		},
	}
}

func newQuoteAddCommand(d Deps) cmd.Command {
	return &command{
		name:        "quote add",
		description: "Stores a message as a quote",
		group:       GroupQuotes,
		arguments: []cmd.Argument{
			{Name: "Message Link", Description: "A link to the message to quote"},
		},
		arity:         cmd.Exactly(1),
		mode:          cmd.Sequential,
		preconditions: []cmd.Precondition{cmd.GuildOnly(), cmd.HasRole(d.PrivilegedRole)},
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			if inv.Caller.Direct() {
				return nil, nil
			}
			env, err := envOf(inv)
			if err != nil {
				return nil, err
			}
			guild, err := guildID(inv)
			if err != nil {
				return nil, err
			}
			ref, err := ParseMessageLink(inv.Args[0])
			if err != nil {
				return nil, cmd.InvalidArgument(0, "Not a valid message link!")
			}
			if ref.GuildID != guild {
				return nil, cmd.InvalidArgument(0, "Can only add quotes from this guild!")
			}
			msg, err := env.fetch(ctx, ref)
			if errors.Is(err, ErrMessageNotFound) {
				return nil, cmd.InvalidArgument(0, "Could not find the linked message!")
			}
			if err != nil {
				return nil, fmt.Errorf("fetch message: %w", err)
			}

			q := store.Quote{
				MessageID:   ref.MessageID,
				ChannelID:   ref.ChannelID,
				GuildID:     ref.GuildID,
				ChannelName: msg.ChannelName,
				Content:     msg.Content,
				ImageURL:    imageOf(msg),
				AuthorID:    msg.AuthorID,
				AuthorName:  msg.AuthorName,
				Timestamp:   store.Timestamp{Time: msg.Timestamp.UTC()},
			}
			return func(ctx context.Context, inv *cmd.Invocation) error {
				tenant, err := d.Stores.Get(ctx, guild)
				if err != nil {
					return err
				}
				if q.ID, err = tenant.AddQuote(ctx, q); err != nil {
					return err
				}
				return sendQuote(ctx, env, q)
			}, nil
		},
	}
}

func newQuoteRemoveCommand(d Deps) cmd.Command {
	return &command{
		name:        "quote remove",
		description: "Deletes a stored quote",
		group:       GroupQuotes,
		arguments: []cmd.Argument{
			{Name: "Id", Description: "The id of the quote to delete"},
		},
		arity:         cmd.Exactly(1),
		mode:          cmd.Sequential,
		preconditions: []cmd.Precondition{cmd.GuildOnly(), cmd.HasRole(d.PrivilegedRole)},
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			id, err := parseQuoteID(inv, 0)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, inv *cmd.Invocation) error {
				env, err := envOf(inv)
				if err != nil {
					return err
				}
				tenant, err := tenantOf(ctx, d.Stores, inv)
				if err != nil {
					return err
				}
				removed, err := tenant.RemoveQuote(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return env.failure(ctx, fmt.Sprintf("Could not locate a Quote with Id `%d`!", id))
				}
				return env.notice(ctx, fmt.Sprintf("Deleted quote `%d`", id))
			}, nil
		},
	}
}
