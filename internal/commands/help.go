package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/pkg/cmd"
)

var groupOrder = []string{GroupGeneral, GroupQuotes, GroupMacros, GroupElite}

func newHelpCommand(registry *cmd.Registry, prefix string) cmd.Command {
	return &command{
		name:        "help",
		description: "Lists all commands, or shows how to use one",
		group:       GroupGeneral,
		arguments: []cmd.Argument{
			{Name: "Command", Description: "The command to explain", Optional: true},
		},
		arity: cmd.Between(0, 1),
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			if len(inv.Args) == 0 {
				embed := helpIndex(registry, prefix)
				return reply(func(ctx context.Context, env *Env) error {
					return env.Reply.Send(ctx, "", embed)
				}), nil
			}
			name := strings.TrimPrefix(strings.TrimSpace(inv.Args[0]), prefix)
			descs, err := registry.Lookup(name)
			if err != nil {
				return nil, cmd.InvalidArgument(0, fmt.Sprintf("Unknown command `%s`!", name))
			}
			embed := helpCommand(descs, prefix)
			return reply(func(ctx context.Context, env *Env) error {
				return env.Reply.Send(ctx, "", embed)
			}), nil
		},
	}
}

func helpIndex(registry *cmd.Registry, prefix string) *discordgo.MessageEmbed {
	byGroup := make(map[string][]*cmd.Descriptor)
	for _, d := range registry.All() {
		byGroup[d.Group] = append(byGroup[d.Group], d)
	}

	var sb strings.Builder
	write := func(group string) {
		descs := byGroup[group]
		if len(descs) == 0 {
			return
		}
		title := group
		if title == "" {
			title = "Other"
		}
		fmt.Fprintf(&sb, "**%s**\n", title)
		for _, d := range descs {
			fmt.Fprintf(&sb, "`%s%s` - %s\n", prefix, d.Name, d.Description)
		}
		sb.WriteString("\n")
		delete(byGroup, group)
	}
	for _, g := range groupOrder {
		write(g)
	}
	for g := range byGroup {
		write(g)
	}

	return &discordgo.MessageEmbed{
		Title:       "Available Commands",
		Description: strings.TrimSpace(sb.String()),
		Color:       render.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Use %shelp <command> for details", prefix)},
	}
}

func helpCommand(descs []*cmd.Descriptor, prefix string) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: prefix + descs[0].Name,
		Color: render.Color,
	}
	for _, d := range descs {
		var sb strings.Builder
		sb.WriteString(d.Description)
		fmt.Fprintf(&sb, "\n`%s`", d.Usage(prefix))
		for _, a := range d.Arguments {
			fmt.Fprintf(&sb, "\n**%s**", a.Name)
			if a.Optional {
				sb.WriteString(" (optional)")
			}
			if a.Description != "" {
				sb.WriteString(": " + a.Description)
			}
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Arguments: %s", d.Arity),
			Value: sb.String(),
		})
	}
	return e
}
