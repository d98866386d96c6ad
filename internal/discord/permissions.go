package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/config"
)

// IsAdministrator reports whether a member owns the guild, holds a role with
// the administrator permission, or is the configured developer.
func IsAdministrator(s *discordgo.Session, member *discordgo.Member, cfg *config.Config) bool {
	if member == nil || member.User == nil {
		return false
	}
	if cfg != nil && cfg.IsDeveloper(member.User.ID) {
		return true
	}

	guild, err := s.State.Guild(member.GuildID)
	if err != nil || guild == nil {
		guild, err = s.Guild(member.GuildID)
		if err != nil || guild == nil {
			return false
		}
	}

	if member.User.ID == guild.OwnerID {
		return true
	}
	for _, roleID := range member.Roles {
		if role, _ := s.State.Role(guild.ID, roleID); role != nil {
			if role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}
