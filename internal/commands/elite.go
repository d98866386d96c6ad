package commands

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/orcabot/internal/elite"
	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/webreq"
	"github.com/keshon/orcabot/pkg/cmd"
)

type lookupFlags struct {
	json        bool
	list        bool
	webrequests bool
}

// parseFlags reads the optional flag argument at slot. Flags are matched as
// substrings, so "json,list" style combinations in one argument work.
func parseFlags(inv *cmd.Invocation, slot int) lookupFlags {
	raw, ok := inv.Arg(slot)
	if !ok {
		return lookupFlags{}
	}
	raw = strings.ToLower(raw)
	return lookupFlags{
		json:        strings.Contains(raw, "json"),
		list:        strings.Contains(raw, "list"),
		webrequests: strings.Contains(raw, "webrequests"),
	}
}

func requireName(inv *cmd.Invocation, slot int) (string, error) {
	name := strings.TrimSpace(inv.Args[slot])
	if name == "" {
		return "", cmd.InvalidArgument(slot, "Name must not be empty!")
	}
	return name, nil
}

func newSystemCommand(d Deps) cmd.Command {
	return &command{
		name:        "system",
		description: "Shows information about a system from EDSM",
		group:       GroupElite,
		arguments: []cmd.Argument{
			{Name: "System Name", Description: "The system to look up"},
			{Name: "Flags", Description: "`json`, `list` and/or `webrequests`", Optional: true},
		},
		arity: cmd.Between(1, 2),
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			name, err := requireName(inv, 0)
			if err != nil {
				return nil, err
			}
			flags := parseFlags(inv, 1)
			return reply(func(ctx context.Context, env *Env) error {
				return runSystem(ctx, d.EDSM, env, name, flags)
			}), nil
		},
	}
}

func runSystem(ctx context.Context, edsm *elite.EDSM, env *Env, name string, flags lookupFlags) error {
	if flags.webrequests {
		if err := env.Reply.Send(ctx, "", elite.WebRequestsEmbed(edsm, name)); err != nil {
			return err
		}
	}

	var (
		report       elite.SystemReport
		stations     *elite.StationList
		systemResp   *webreq.Response
		stationsResp *webreq.Response
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.System, systemResp, err = edsm.System(gctx, name)
		return err
	})
	g.Go(func() error {
		var err error
		stations, stationsResp, err = edsm.Stations(gctx, name)
		return err
	})
	g.Go(func() error {
		// Activity reports are optional; a failure only hides them.
		report.Traffic, _, _ = edsm.Traffic(gctx, name)
		return nil
	})
	g.Go(func() error {
		report.Deaths, _, _ = edsm.Deaths(gctx, name)
		return nil
	})
	if err := g.Wait(); err != nil {
		return env.failure(ctx, webreq.Describe("EDSM", err))
	}
	if report.System == nil {
		return env.failure(ctx, "System not found in database!")
	}
	if stations != nil {
		report.Stations = stations.Stations
	}

	if flags.json {
		if err := env.Reply.Send(ctx, "", elite.JSONEmbed("General System Info", systemResp.Body)); err != nil {
			return err
		}
		if err := env.Reply.Send(ctx, "", elite.JSONEmbed("Station Info", stationsResp.Body)); err != nil {
			return err
		}
	}
	if err := env.Reply.Send(ctx, "", elite.SystemEmbed(report)); err != nil {
		return err
	}
	if flags.list {
		for _, e := range elite.StationListEmbeds(report) {
			if err := env.Reply.Send(ctx, "", e); err != nil {
				return err
			}
		}
	}
	return nil
}

func newDistanceCommand(d Deps) cmd.Command {
	return &command{
		name:        "distance",
		description: "Shows the distance between two systems",
		group:       GroupElite,
		arguments: []cmd.Argument{
			{Name: "System 1", Description: "The starting point of the distance measurement"},
			{Name: "System 2", Description: "The end point of the distance measurement"},
			{Name: "Flags", Description: "`json` to also print the EDSM answer", Optional: true},
		},
		arity: cmd.Between(2, 3),
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			a, err := requireName(inv, 0)
			if err != nil {
				return nil, err
			}
			b, err := requireName(inv, 1)
			if err != nil {
				return nil, err
			}
			flags := parseFlags(inv, 2)
			return reply(func(ctx context.Context, env *Env) error {
				systems, resp, err := d.EDSM.Systems(ctx, a, b)
				if err != nil {
					return env.failure(ctx, webreq.Describe("EDSM", err))
				}
				if len(systems) == 0 {
					return env.failure(ctx, "System not found in database!")
				}
				if flags.json {
					if err := env.Reply.Send(ctx, "", elite.JSONEmbed("General System Info", resp.Body)); err != nil {
						return err
					}
				}
				return env.Reply.Send(ctx, "", elite.DistanceEmbed(a, b, systems))
			}), nil
		},
	}
}

func newCmdrCommand(d Deps) cmd.Command {
	return &command{
		name:        "cmdr",
		description: "Shows information about a commander from Inara and EDSM",
		group:       GroupElite,
		arguments: []cmd.Argument{
			{Name: "Commander Name", Description: "A commander name to search by"},
			{Name: "Flags", Description: "`json` to also print the raw answers", Optional: true},
		},
		arity: cmd.Between(1, 2),
		parse: func(ctx context.Context, inv *cmd.Invocation) (cmd.Action, error) {
			name, err := requireName(inv, 0)
			if err != nil {
				return nil, err
			}
			flags := parseFlags(inv, 1)
			return reply(func(ctx context.Context, env *Env) error {
				return runCmdr(ctx, d, env, name, flags)
			}), nil
		},
	}
}

func runCmdr(ctx context.Context, d Deps, env *Env, name string, flags lookupFlags) error {
	var (
		inaraEmbed, edsmEmbed *discordgo.MessageEmbed
		debug                 []*discordgo.MessageEmbed
		inaraJSON, edsmJSON   *discordgo.MessageEmbed
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !d.Inara.Enabled() {
			inaraEmbed = requestFailed("Inara Request Failed",
				"Can not make inara requests, as appname and/or apikey config variables are not set!")
			return nil
		}
		res, resp, err := d.Inara.Profile(gctx, name)
		if err != nil {
			inaraEmbed = requestFailed("Inara Request Failed", webreq.Describe("Inara", err))
			return nil
		}
		inaraEmbed = elite.ProfileEmbed(res, name)
		if flags.json {
			inaraJSON = elite.JSONEmbed("Result JSON from Inara", resp.Body)
		}
		return nil
	})
	g.Go(func() error {
		pos, resp, err := d.EDSM.CommanderPosition(gctx, name)
		if err != nil {
			edsmEmbed = requestFailed("EDSM Request Failed", webreq.Describe("EDSM", err))
			return nil
		}
		edsmEmbed = elite.PositionEmbed(pos, name)
		if flags.json {
			edsmJSON = elite.JSONEmbed("Result JSON from EDSM", resp.Body)
		}
		return nil
	})
	_ = g.Wait()

	if flags.json && d.Inara.Enabled() {
		req, err := json.Marshal(redactedRequest(d.Inara.ProfileRequest(name)))
		if err == nil {
			debug = append(debug, elite.JSONEmbed("Request JSON sending to Inara", req))
		}
	}
	for _, e := range []*discordgo.MessageEmbed{inaraJSON, edsmJSON} {
		if e != nil {
			debug = append(debug, e)
		}
	}
	for _, e := range debug {
		if err := env.Reply.Send(ctx, "", e); err != nil {
			return err
		}
	}

	inaraEmbed.Footer = &discordgo.MessageEmbedFooter{Text: "Inara"}
	edsmEmbed.Footer = &discordgo.MessageEmbedFooter{Text: "EDSM"}
	return env.Reply.Send(ctx, "", inaraEmbed, edsmEmbed)
}

// redactedRequest hides the API key before a request is shown in chat.
func redactedRequest(r elite.InaraRequest) elite.InaraRequest {
	if r.Header.APIKey != "" {
		r.Header.APIKey = "<redacted>"
	}
	return r
}

func requestFailed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Color: render.ErrorColor, Description: description}
}
