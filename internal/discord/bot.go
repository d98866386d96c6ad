package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/commands"
	"github.com/keshon/orcabot/internal/config"
	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

// Bot connects the dispatcher to a Discord session.
type Bot struct {
	dg         *discordgo.Session
	cfg        *config.Config
	dispatcher *cmd.Dispatcher
	stores     *store.Manager
	logger     *zap.Logger
}

// New prepares a bot. Run opens the session.
func New(cfg *config.Config, dispatcher *cmd.Dispatcher, stores *store.Manager, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{dg: dg, cfg: cfg, dispatcher: dispatcher, stores: stores, logger: logger}
	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	return b, nil
}

// Run keeps the session open until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	<-ctx.Done()
	b.logger.Info("shutdown signal received, closing session")
	return b.dg.Close()
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord bot is running",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.logger.Info("guild available", zap.String("guild", g.ID), zap.String("name", g.Name))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	ctx := context.Background()

	switch {
	case strings.HasPrefix(m.Content, b.cfg.CommandPrefix):
		b.handleCommand(ctx, s, m, strings.TrimPrefix(m.Content, b.cfg.CommandPrefix))
	case b.cfg.MacroPrefix != "" && strings.HasPrefix(m.Content, b.cfg.MacroPrefix):
		b.handleMacro(ctx, s, m, strings.TrimSpace(strings.TrimPrefix(m.Content, b.cfg.MacroPrefix)))
	}
}

func (b *Bot) env(s *discordgo.Session, channelID string) *commands.Env {
	return &commands.Env{
		Reply:   &channelResponder{s: s, channelID: channelID},
		Fetcher: &messageFetcher{s: s},
		Authors: &memberResolver{s: s},
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, body string) {
	env := b.env(s, m.ChannelID)
	inv := b.dispatcher.Dispatch(ctx, body, b.caller(s, m), env)
	if inv.Failure == nil {
		return
	}

	msg := cmd.Describe(inv, b.cfg.CommandPrefix)
	if errors.Is(inv.Err(), cmd.ErrNoMatch) {
		if m.GuildID != "" || !b.cfg.DMAcknowledge {
			return
		}
		msg = fmt.Sprintf("Unknown command. Use `%shelp`.", b.cfg.CommandPrefix)
	}
	if msg == "" {
		return
	}
	if err := env.Reply.Send(ctx, "", render.Error(msg)); err != nil {
		b.logger.Warn("failed to send error reply",
			zap.String("invocation", inv.ID),
			zap.String("channel", m.ChannelID),
			zap.Error(err))
	}
}

// handleMacro answers ";name" with the stored macro. Unknown names are
// ignored.
func (b *Bot) handleMacro(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, id string) {
	if m.GuildID == "" || !store.ValidMacroID(id) {
		return
	}
	guildID, err := strconv.ParseUint(m.GuildID, 10, 64)
	if err != nil {
		return
	}
	tenant, err := b.stores.Get(ctx, guildID)
	if err != nil {
		b.logger.Warn("failed to load tenant", zap.String("guild", m.GuildID), zap.Error(err))
		return
	}
	macro, ok := tenant.Macro(id)
	if !ok {
		return
	}
	vars := render.Vars{User: "<@" + m.Author.ID + ">", Guild: m.GuildID, Channel: "<#" + m.ChannelID + ">"}
	if err := commands.SendMacro(ctx, &channelResponder{s: s, channelID: m.ChannelID}, macro, vars); err != nil {
		b.logger.Warn("failed to send macro",
			zap.String("guild", m.GuildID),
			zap.String("macro", id),
			zap.Error(err))
	}
}

// caller describes the author of m. Roles carry both the IDs and the names
// of the author's guild roles.
func (b *Bot) caller(s *discordgo.Session, m *discordgo.MessageCreate) cmd.Caller {
	c := cmd.Caller{
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
	}
	if m.GuildID == "" || m.Member == nil {
		c.Admin = b.cfg.IsDeveloper(m.Author.ID)
		return c
	}

	member := *m.Member
	member.GuildID = m.GuildID
	member.User = m.Author
	for _, roleID := range member.Roles {
		c.Roles = append(c.Roles, roleID)
		if role, err := s.State.Role(m.GuildID, roleID); err == nil && role != nil {
			c.Roles = append(c.Roles, role.Name)
		}
	}
	c.Admin = IsAdministrator(s, &member, b.cfg)
	return c
}
