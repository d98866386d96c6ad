package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

// Vars returns the substitution data of an invocation.
func Vars(inv *cmd.Invocation) render.Vars {
	v := render.Vars{User: inv.Caller.UserName}
	if inv.Caller.UserID != "" {
		v.User = "<@" + inv.Caller.UserID + ">"
	}
	if inv.Caller.GuildID != "" {
		v.Guild = inv.Caller.GuildID
	}
	if inv.Caller.ChannelID != "" {
		v.Channel = "<#" + inv.Caller.ChannelID + ">"
	}
	return v
}

// SendMacro renders m with vars and sends it.
func SendMacro(ctx context.Context, r Responder, m store.Macro, vars render.Vars) error {
	embed, content, err := render.Macro(m.Template, vars)
	if err != nil {
		return fmt.Errorf("render macro %s: %w", m.ID, err)
	}
	if embed == nil {
		return r.Send(ctx, content)
	}
	return r.Send(ctx, content, embed)
}

func newMacroCommand(d Deps) cmd.Command {
	return &command{
		name:        "macro",
		description: "Stores, replaces or deletes a macro. The template is JSON with `content` and/or `embed`, or a link to a message to copy",
		group:       GroupMacros,
		arguments: []cmd.Argument{
			{Name: "Identifier", Description: "Letters, digits, `-` and `_`"},
			{Name: "Template", Description: "JSON template, message link, or `remove`"},
		},
		arity:         cmd.Between(2, cmd.Unbounded),
		mode:          cmd.Sequential,
		preconditions: []cmd.Precondition{cmd.GuildOnly(), cmd.HasRole(d.PrivilegedRole)},
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			if inv.Caller.Direct() {
				return nil, nil
			}
			id := inv.Args[0]
			if !store.ValidMacroID(id) {
				return nil, cmd.InvalidArgument(0, "Not a valid macro name!")
			}

			if strings.EqualFold(inv.Args[1], "remove") {
				return func(ctx context.Context, inv *cmd.Invocation) error {
					env, err := envOf(inv)
					if err != nil {
						return err
					}
					tenant, err := tenantOf(ctx, d.Stores, inv)
					if err != nil {
						return err
					}
					removed, err := tenant.RemoveMacro(ctx, id)
					if err != nil {
						return err
					}
					if !removed {
						return env.failure(ctx, fmt.Sprintf("No macro `%s` stored!", id))
					}
					return env.notice(ctx, fmt.Sprintf("Deleted macro `%s`", id))
				}, nil
			}

			template, err := macroTemplate(ctx, inv)
			if err != nil {
				return nil, err
			}
			m := store.Macro{ID: id, Template: template}
			if _, _, err := render.Macro(m.Template, Vars(inv)); err != nil {
				return nil, cmd.InvalidArgument(1, err.Error())
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
				if err := tenant.SetMacro(ctx, m); err != nil {
					return err
				}
				return SendMacro(ctx, env.Reply, m, Vars(inv))
			}, nil
		},
	}
}

// macroTemplate reads the template from a message link or from the raw
// argument text, which may itself contain commas.
func macroTemplate(ctx context.Context, inv *cmd.Invocation) (map[string]json.RawMessage, error) {
	if strings.HasPrefix(inv.Args[1], "http") {
		env, err := envOf(inv)
		if err != nil {
			return nil, err
		}
		ref, err := ParseMessageLink(inv.Args[1])
		if err != nil {
			return nil, cmd.InvalidArgument(1, "Not a valid message link!")
		}
		msg, err := env.fetch(ctx, ref)
		if errors.Is(err, ErrMessageNotFound) {
			return nil, cmd.InvalidArgument(1, "Could not find the linked message!")
		}
		if err != nil {
			return nil, fmt.Errorf("fetch message: %w", err)
		}
		var embed *discordgo.MessageEmbed
		if len(msg.Embeds) > 0 {
			embed = msg.Embeds[0]
		}
		template, err := render.Template(msg.Content, embed)
		if err != nil {
			return nil, cmd.InvalidArgument(1, err.Error())
		}
		return template, nil
	}

	template, err := render.ParseTemplate(inv.Rest(1))
	if err != nil {
		return nil, cmd.InvalidArgument(1, err.Error())
	}
	return template, nil
}

func newMacroListCommand(d Deps) cmd.Command {
	return &command{
		name:          "macrolist",
		description:   "Lists all stored macros",
		group:         GroupMacros,
		arity:         cmd.Exactly(0),
		mode:          cmd.Sequential,
		preconditions: []cmd.Precondition{cmd.GuildOnly()},
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			return func(ctx context.Context, inv *cmd.Invocation) error {
				env, err := envOf(inv)
				if err != nil {
					return err
				}
				tenant, err := tenantOf(ctx, d.Stores, inv)
				if err != nil {
					return err
				}
				ids := tenant.MacroIDs()
				if len(ids) == 0 {
					return env.notice(ctx, "No macros stored for this guild!")
				}
				quoted := make([]string, len(ids))
				for i, id := range ids {
					quoted[i] = "`" + id + "`"
				}
				return env.Reply.Send(ctx, "", &discordgo.MessageEmbed{
					Title:       fmt.Sprintf("Macros - %d", len(ids)),
					Color:       render.Color,
					Description: strings.Join(quoted, ", "),
				})
			}, nil
		},
	}
}
