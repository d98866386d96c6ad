package discord

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/commands"
	"github.com/keshon/orcabot/internal/render"
)

// channelResponder replies in one channel.
type channelResponder struct {
	s         *discordgo.Session
	channelID string
}

func (r *channelResponder) Send(ctx context.Context, content string, embeds ...*discordgo.MessageEmbed) error {
	_, err := r.s.ChannelMessageSendComplex(r.channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	return err
}

// messageFetcher loads linked messages through the REST API.
type messageFetcher struct {
	s *discordgo.Session
}

func (f *messageFetcher) FetchMessage(ctx context.Context, ref commands.MessageRef) (*commands.Message, error) {
	channelID := strconv.FormatUint(ref.ChannelID, 10)
	ch, err := f.channel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	if ch.GuildID != strconv.FormatUint(ref.GuildID, 10) {
		return nil, commands.ErrMessageNotFound
	}

	m, err := f.s.ChannelMessage(channelID, strconv.FormatUint(ref.MessageID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return nil, notFound(err)
	}

	msg := &commands.Message{
		Ref:         ref,
		ChannelName: ch.Name,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		Embeds:      m.Embeds,
	}
	if m.Author != nil {
		msg.AuthorID, _ = strconv.ParseUint(m.Author.ID, 10, 64)
		msg.AuthorName = m.Author.Username
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	return msg, nil
}

func (f *messageFetcher) channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, err := f.s.State.Channel(id); err == nil {
		return ch, nil
	}
	return f.s.Channel(id, discordgo.WithContext(ctx))
}

// notFound maps missing or unreadable resources to ErrMessageNotFound.
func notFound(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return commands.ErrMessageNotFound
		}
	}
	return err
}

// memberResolver looks up guild members, preferring the state cache.
type memberResolver struct {
	s *discordgo.Session
}

func (r *memberResolver) Author(ctx context.Context, guildID, userID uint64) *render.Author {
	gid := strconv.FormatUint(guildID, 10)
	uid := strconv.FormatUint(userID, 10)

	member, err := r.s.State.Member(gid, uid)
	if err != nil {
		member, err = r.s.GuildMember(gid, uid, discordgo.WithContext(ctx))
		if err != nil || member == nil || member.User == nil {
			return nil
		}
	}
	if member.User == nil {
		return nil
	}
	return &render.Author{Name: member.DisplayName(), AvatarURL: member.AvatarURL("")}
}
