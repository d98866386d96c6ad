package elite

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
)

// DistanceEmbed renders the distance between the systems EDSM resolved for
// nameA and nameB. Only a pair of systems with coordinates yields a distance;
// any other result is rendered as an error embed.
func DistanceEmbed(nameA, nameB string, systems []System) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Color:  render.ErrorColor,
		Footer: &discordgo.MessageEmbedFooter{Text: "EDSM"},
	}
	switch len(systems) {
	case 2:
		a, b := &systems[0], &systems[1]
		nameA, nameB = orName(a.Name, nameA), orName(b.Name, nameB)
		if a.Coords == nil || b.Coords == nil {
			e.Description = "Coordinates unknown for at least one system!"
			break
		}
		e.Color = render.Color
		e.Description = fmt.Sprintf("%s **`<-`   `%s ly`   ` ->`** %s",
			systemLink(a, nameA), FormatDistance(Distance(*a.Coords, *b.Coords)), systemLink(b, nameB))
	case 1:
		e.Description = "Found only one system: " + systems[0].Name
	default:
		e.Description = "System not found in database!"
	}
	e.Title = fmt.Sprintf("Distance between %q and %q", nameA, nameB)
	return e
}

func orName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func systemLink(s *System, name string) string {
	if s.ID == 0 {
		return name
	}
	return "[" + name + "](" + SystemPageURL(s.ID, name) + ")"
}
