package elite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/webreq"
)

const (
	// DefaultInaraURL is the Inara API endpoint.
	DefaultInaraURL = "https://inara.cz/inapi/v1/"
	inaraAppVersion = "1.8"

	inaraStatusOK       = 200
	inaraStatusMultiple = 202
	inaraStatusNotFound = 204
)

// Inara queries commander profiles. It is usable only when an app name and
// an API key are configured.
type Inara struct {
	client  *webreq.Client
	url     string
	appName string
	apiKey  string
	now     func() time.Time
}

func NewInara(client *webreq.Client, url, appName, apiKey string) *Inara {
	if url == "" {
		url = DefaultInaraURL
	}
	return &Inara{client: client, url: url, appName: appName, apiKey: apiKey, now: time.Now}
}

// Enabled reports whether credentials are configured.
func (i *Inara) Enabled() bool {
	return i != nil && i.appName != "" && i.apiKey != ""
}

type inaraHeader struct {
	AppName     string `json:"appName"`
	AppVersion  string `json:"appVersion"`
	IsDeveloped bool   `json:"isDeveloped"`
	APIKey      string `json:"APIkey"`
}

type inaraEvent struct {
	EventName      string         `json:"eventName"`
	EventTimestamp string         `json:"eventTimestamp"`
	EventData      map[string]any `json:"eventData"`
}

// InaraRequest is the body posted to the Inara API.
type InaraRequest struct {
	Header inaraHeader  `json:"header"`
	Events []inaraEvent `json:"events"`
}

// ProfileRequest builds the getCommanderProfile request for name.
func (i *Inara) ProfileRequest(name string) InaraRequest {
	return InaraRequest{
		Header: inaraHeader{AppName: i.appName, AppVersion: inaraAppVersion, IsDeveloped: true, APIKey: i.apiKey},
		Events: []inaraEvent{{
			EventName:      "getCommanderProfile",
			EventTimestamp: i.now().UTC().Format("2006-01-02T15:04:05Z"),
			EventData:      map[string]any{"searchName": name},
		}},
	}
}

// Squadron is the squadron a commander belongs to.
type Squadron struct {
	Name         string `json:"squadronName"`
	MemberRank   string `json:"squadronMemberRank"`
	MembersCount int    `json:"squadronMembersCount"`
	URL          string `json:"inaraURL"`
}

// Profile is the eventData of a getCommanderProfile answer.
type Profile struct {
	UserName        string    `json:"userName"`
	InaraURL        string    `json:"inaraURL"`
	GameRole        string    `json:"preferredGameRole"`
	Allegiance      string    `json:"preferredAllegianceName"`
	Squadron        *Squadron `json:"commanderSquadron"`
	OtherNamesFound []string  `json:"otherNamesFound"`
}

// ProfileEvent is one event of the Inara answer.
type ProfileEvent struct {
	Status     int      `json:"eventStatus"`
	StatusText string   `json:"eventStatusText"`
	Data       *Profile `json:"eventData"`
}

// InaraResponse is the answer of the Inara API.
type InaraResponse struct {
	Header struct {
		Status     int    `json:"eventStatus"`
		StatusText string `json:"eventStatusText"`
	} `json:"header"`
	Events []ProfileEvent `json:"events"`
}

// Profile looks up a commander.
func (i *Inara) Profile(ctx context.Context, name string) (*InaraResponse, *webreq.Response, error) {
	var out InaraResponse
	resp, err := i.client.PostJSON(ctx, i.url, i.ProfileRequest(name), &out)
	if err != nil {
		return nil, resp, err
	}
	return &out, resp, nil
}

func failedAuthor(name, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: name},
		Color:       render.ErrorColor,
		Description: description,
	}
}

// ProfileEmbed renders an Inara answer for the commander searched as name.
func ProfileEmbed(r *InaraResponse, name string) *discordgo.MessageEmbed {
	if r == nil || len(r.Events) == 0 {
		if r != nil && r.Header.StatusText != "" {
			return failedAuthor(name, r.Header.StatusText)
		}
		return failedAuthor(name, "Internal Error")
	}
	ev := r.Events[0]
	if ev.Status == inaraStatusNotFound {
		return failedAuthor(name, ev.StatusText)
	}
	if ev.Data == nil || ev.Data.UserName == "" {
		if ev.StatusText != "" && ev.Status != inaraStatusOK {
			return failedAuthor(name, ev.StatusText)
		}
		return failedAuthor(name, "Internal Error")
	}
	p := ev.Data
	if ev.Status == inaraStatusMultiple && !strings.EqualFold(p.UserName, name) && len(p.OtherNamesFound) > 0 {
		return &discordgo.MessageEmbed{
			Title:       "Multiple Results found!",
			Color:       render.Color,
			Description: p.UserName + "\n" + strings.Join(p.OtherNamesFound, "\n"),
		}
	}

	e := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: p.UserName + "'s Inara Profile", URL: p.InaraURL},
		Color:  render.Color,
	}
	if p.GameRole != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Game Role", Value: p.GameRole, Inline: true})
	}
	if p.Allegiance != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Allegiance", Value: p.Allegiance, Inline: true})
	}
	if sq := p.Squadron; sq != nil {
		squadron := sq.Name
		if sq.URL != "" {
			squadron = "[" + sq.Name + "](" + sq.URL + ")"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   "Squadron",
			Value:  fmt.Sprintf("%s (%d Members): Rank `%s`", squadron, sq.MembersCount, sq.MemberRank),
			Inline: true,
		})
	}
	return e
}

// PositionEmbed renders a commander's last EDSM position.
func PositionEmbed(p *Position, name string) *discordgo.MessageEmbed {
	if p == nil || p.Msg == "" {
		return failedAuthor(name, "Internal Error")
	}
	if p.Msg != "OK" {
		return failedAuthor(name, p.Msg)
	}

	userName := name
	profile := p.URL
	if profile == "" {
		profile = "https://www.edsm.net"
	} else if parts := strings.Split(profile, "/"); len(parts) > 1 && parts[len(parts)-1] != "" {
		userName = parts[len(parts)-1]
	}

	e := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: userName + "'s EDSM Profile", URL: profile},
		Color:  render.Color,
	}
	if p.System != "" {
		value := p.System
		if p.SystemID != 0 {
			value = "[" + p.System + "](" + SystemPageURL(p.SystemID, p.System) + ")"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "System", Value: value})
	}
	if p.ShipType != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Ship", Value: p.ShipType})
	}
	if p.IsDocked {
		station := p.Station
		if station == "" {
			station = "Unknown Station"
		}
		value := station
		if p.StationID != 0 && p.SystemID != 0 && p.System != "" {
			s := Station{ID: p.StationID, Name: station}
			value = "[" + station + "](" + s.URL(p.SystemID, p.System) + ")"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Docked At", Value: value})
	}
	return e
}
