// Package render turns stored macros and quotes into Discord messages.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/store"
)

const (
	// Color is the accent color of every embed the bot sends.
	Color = 0x507FA0
	// ErrorColor marks embeds that report a failure.
	ErrorColor = 0xD0021B
	// DefaultAvatarURL is shown for quote authors that left the guild.
	DefaultAvatarURL = "https://cdn.discordapp.com/embed/avatars/0.png"
)

// Discord message limits.
const (
	maxContent     = 2000
	maxTitle       = 256
	maxDescription = 4096
	maxFields      = 25
	maxFieldName   = 256
	maxFieldValue  = 1024
	maxFooter      = 2048
	maxAuthorName  = 256
	maxEmbedTotal  = 6000
)

var ErrEmptyTemplate = errors.New("template has neither content nor embed")

// Vars are substituted for {user}, {guild} and {channel} in macro text.
type Vars struct {
	User    string
	Guild   string
	Channel string
}

func (v Vars) replacer() *strings.Replacer {
	return strings.NewReplacer("{user}", v.User, "{guild}", v.Guild, "{channel}", v.Channel)
}

// ParseTemplate parses the JSON text of a macro. The sequence [3`] stands
// for a code fence, which users cannot type inside a command argument.
func ParseTemplate(text string) (map[string]json.RawMessage, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "[3`]", "```")
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if fields == nil {
		return nil, errors.New("invalid JSON: expected an object")
	}
	delete(fields, "Id")
	return fields, nil
}

// Template builds the stored template of an existing message.
func Template(content string, embed *discordgo.MessageEmbed) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, 2)
	if content != "" {
		raw, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		fields["content"] = raw
	}
	if embed != nil {
		raw, err := json.Marshal(embed)
		if err != nil {
			return nil, err
		}
		fields["embed"] = raw
	}
	if len(fields) == 0 {
		return nil, ErrEmptyTemplate
	}
	return fields, nil
}

// Macro renders a macro template. It fails when the template carries
// neither a content nor an embed, or when the result breaks Discord limits.
func Macro(template map[string]json.RawMessage, vars Vars) (*discordgo.MessageEmbed, string, error) {
	var content string
	if raw, ok := template["content"]; ok {
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, "", fmt.Errorf("content: %w", err)
		}
	}
	var embed *discordgo.MessageEmbed
	if raw, ok := template["embed"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		embed = new(discordgo.MessageEmbed)
		if err := json.Unmarshal(raw, embed); err != nil {
			return nil, "", fmt.Errorf("embed: %w", err)
		}
	}
	if content == "" && (embed == nil || embedLength(embed) == 0 && embed.Image == nil && embed.Thumbnail == nil) {
		return nil, "", ErrEmptyTemplate
	}

	r := vars.replacer()
	content = r.Replace(content)
	if len([]rune(content)) > maxContent {
		return nil, "", fmt.Errorf("content exceeds %d characters", maxContent)
	}
	if embed != nil {
		substitute(embed, r)
		if err := ValidateEmbed(embed); err != nil {
			return nil, "", err
		}
	}
	return embed, content, nil
}

func substitute(e *discordgo.MessageEmbed, r *strings.Replacer) {
	e.Title = r.Replace(e.Title)
	e.Description = r.Replace(e.Description)
	if e.Footer != nil {
		e.Footer.Text = r.Replace(e.Footer.Text)
	}
	if e.Author != nil {
		e.Author.Name = r.Replace(e.Author.Name)
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		f.Name = r.Replace(f.Name)
		f.Value = r.Replace(f.Value)
	}
}

// ValidateEmbed checks e against Discord's embed limits.
func ValidateEmbed(e *discordgo.MessageEmbed) error {
	check := func(what, s string, max int) error {
		if n := len([]rune(s)); n > max {
			return fmt.Errorf("embed %s has %d characters, the limit is %d", what, n, max)
		}
		return nil
	}
	if err := check("title", e.Title, maxTitle); err != nil {
		return err
	}
	if err := check("description", e.Description, maxDescription); err != nil {
		return err
	}
	if len(e.Fields) > maxFields {
		return fmt.Errorf("embed has %d fields, the limit is %d", len(e.Fields), maxFields)
	}
	for i, f := range e.Fields {
		if f == nil {
			return fmt.Errorf("embed field %d is empty", i+1)
		}
		if err := check("field name", f.Name, maxFieldName); err != nil {
			return err
		}
		if err := check("field value", f.Value, maxFieldValue); err != nil {
			return err
		}
	}
	if e.Footer != nil {
		if err := check("footer", e.Footer.Text, maxFooter); err != nil {
			return err
		}
	}
	if e.Author != nil {
		if err := check("author name", e.Author.Name, maxAuthorName); err != nil {
			return err
		}
	}
	if n := embedLength(e); n > maxEmbedTotal {
		return fmt.Errorf("embed has %d characters in total, the limit is %d", n, maxEmbedTotal)
	}
	return nil
}

func embedLength(e *discordgo.MessageEmbed) int {
	n := len([]rune(e.Title)) + len([]rune(e.Description))
	for _, f := range e.Fields {
		if f != nil {
			n += len([]rune(f.Name)) + len([]rune(f.Value))
		}
	}
	if e.Footer != nil {
		n += len([]rune(e.Footer.Text))
	}
	if e.Author != nil {
		n += len([]rune(e.Author.Name))
	}
	return n
}

// Author is the current guild identity of a quote's author.
type Author struct {
	Name      string
	AvatarURL string
}

// Quote renders q. author is nil when the author is no longer resolvable;
// the stored name and the default avatar are used instead.
func Quote(q store.Quote, author *Author) *discordgo.MessageEmbed {
	link := MessageURL(q.GuildID, q.ChannelID, q.MessageID)
	a := &discordgo.MessageEmbedAuthor{URL: link, Name: q.AuthorName, IconURL: DefaultAvatarURL}
	if author != nil {
		a.Name = author.Name
		if author.AvatarURL != "" {
			a.IconURL = author.AvatarURL
		}
	}
	e := &discordgo.MessageEmbed{
		Color:       Color,
		Description: fmt.Sprintf("**Message Link**\n(%s)\n\n**Message**\n%s", link, q.Content),
		Author:      a,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("#%s, QuoteId: %d", q.ChannelName, q.ID)},
	}
	if !q.Timestamp.IsZero() {
		e.Timestamp = q.Timestamp.UTC().Format(time.RFC3339)
	}
	if q.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: q.ImageURL}
	}
	return e
}

// Notice is a plain colored embed carrying text.
func Notice(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Color: Color, Description: text}
}

// Error is a Notice in ErrorColor.
func Error(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Color: ErrorColor, Description: text}
}

// MessageURL links to a message.
func MessageURL(guildID, channelID, messageID uint64) string {
	return "https://discord.com/channels/" +
		strconv.FormatUint(guildID, 10) + "/" +
		strconv.FormatUint(channelID, 10) + "/" +
		strconv.FormatUint(messageID, 10)
}

// Text flattens an embed for terminals.
func Text(e *discordgo.MessageEmbed) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	line := func(s string) {
		if s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	if e.Author != nil {
		line(e.Author.Name)
	}
	line(e.Title)
	line(e.Description)
	for _, f := range e.Fields {
		if f != nil {
			line(f.Name + ": " + f.Value)
		}
	}
	if e.Image != nil {
		line(e.Image.URL)
	}
	if e.Footer != nil {
		line(e.Footer.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
