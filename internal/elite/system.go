package elite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
)

const maxJSONDescription = 2037

// SystemReport gathers everything the system command shows about a system.
type SystemReport struct {
	System   *System
	Stations []Station
	Traffic  *Activity
	Deaths   *Activity
}

// closest returns the station nearest to the arrival star among those
// accepted by keep.
func closest(stations []Station, keep func(*Station) bool) *Station {
	var best *Station
	for i := range stations {
		s := &stations[i]
		if keep(s) && (best == nil || s.Distance < best.Distance) {
			best = s
		}
	}
	return best
}

// SystemEmbed renders the system overview: permit, star, security, the
// closest stations per pad size and the activity reports.
func SystemEmbed(r SystemReport) *discordgo.MessageEmbed {
	sys := r.System
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("__**System Info for %s**__", sys.Name),
		URL:   sys.URL(),
		Color: render.Color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "EDSM",
		},
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "General Info", Value: generalInfo(sys)})

	large := closest(r.Stations, func(s *Station) bool { return s.HasLargePad() })
	medium := closest(r.Stations, func(s *Station) bool { return s.HasMediumPad() })
	planetary := closest(r.Stations, func(s *Station) bool { return s.IsPlanetary() })

	field := func(name string, s *Station) {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  name,
			Value: s.Title(sys.ID, sys.Name) + "\n" + orDash(s.Services()),
		})
	}
	if large != nil {
		field("Closest Orbital Large Pad", large)
	}
	if medium != nil && (large == nil || large.Distance > medium.Distance) {
		field("Closest Orbital Medium Pad", medium)
	}
	if planetary != nil {
		field("Closest Planetary Large Pad", planetary)
	}
	if large == nil && medium == nil && planetary == nil {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "No Stations in this System!", Value: "- / -"})
	}

	e.Fields = append(e.Fields, activityField("Traffic Report", r.Traffic))
	e.Fields = append(e.Fields, activityField("CMDR Deaths Report", r.Deaths))
	return e
}

func generalInfo(sys *System) string {
	var b strings.Builder
	if sys.RequirePermit {
		permit := sys.PermitName
		if permit == "" {
			permit = "Unknown Permit"
		}
		fmt.Fprintf(&b, "**Requires Permit**: %s\n", permit)
	}

	star := "Not found"
	if sys.PrimaryStar != nil && sys.PrimaryStar.Type != "" {
		star = sys.PrimaryStar.Type
	}
	b.WriteString("Star Type: " + star)
	if sys.PrimaryStar != nil && sys.PrimaryStar.IsScoopable != nil && !*sys.PrimaryStar.IsScoopable {
		b.WriteString(" **(Unscoopable)**")
	}

	security := "Unknown"
	switch {
	case sys.Information != nil && sys.Information.Security != "":
		security = sys.Information.Security
	case sys.HasInformation:
		security = "Anarchy (Unpopulated)"
	}
	b.WriteString("\nSecurity: " + security)
	if sys.Information != nil && sys.Information.Population > 0 {
		b.WriteString("\nPopulation: " + FormatCount(sys.Information.Population))
	}
	return b.String()
}

func activityField(name string, a *Activity) *discordgo.MessageEmbedField {
	if a == nil {
		return &discordgo.MessageEmbedField{Name: "No " + name + " Available", Value: "- / -"}
	}
	return &discordgo.MessageEmbedField{
		Name:  name,
		Value: fmt.Sprintf("Last 7 days: %s CMDRs, last 24 hours: %s CMDRs", FormatCount(a.Week), FormatCount(a.Day)),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// StationListEmbeds lists every station of the report, 25 per embed.
func StationListEmbeds(r SystemReport) []*discordgo.MessageEmbed {
	const perEmbed = 25
	sys := r.System
	var out []*discordgo.MessageEmbed
	for start := 0; start < len(r.Stations); start += perEmbed {
		e := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("Stations in %s", sys.Name),
			Color: render.Color,
		}
		for i := start; i < len(r.Stations) && i < start+perEmbed; i++ {
			s := &r.Stations[i]
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
				Name:  Truncate(fmt.Sprintf("%s %s: %s, %s ls", s.Emoji(), s.Name, s.TypeName(), FormatDistance(s.Distance)), 256),
				Value: fmt.Sprintf("[Link](%s) - %s", s.URL(sys.ID, sys.Name), orDash(s.Services())),
			})
		}
		out = append(out, e)
	}
	return out
}

// WebRequestsEmbed lists the EDSM requests made for system.
func WebRequestsEmbed(edsm *EDSM, system string) *discordgo.MessageEmbed {
	line := func(name, u string) string { return fmt.Sprintf("[%s](%s) `%s`", name, u, u) }
	return &discordgo.MessageEmbed{
		Title: "Webrequests",
		Color: render.Color,
		Description: strings.Join([]string{
			line("System", edsm.SystemURL(system)),
			line("Stations", edsm.StationsURL(system)),
			line("Traffic", edsm.TrafficURL(system)),
			line("Deaths", edsm.DeathsURL(system)),
		}, "\n"),
	}
}

// JSONEmbed shows body pretty-printed in a code block.
func JSONEmbed(title string, body []byte) *discordgo.MessageEmbed {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(body)
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       render.Color,
		Description: "```json\n" + Truncate(pretty.String(), maxJSONDescription) + "```",
	}
}
