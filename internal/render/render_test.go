package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orcabot/internal/store"
)

func TestParseTemplate(t *testing.T) {
	fields, err := ParseTemplate(`{"content": "[3` + "`" + `]go\nfmt.Println()[3` + "`" + `]", "Id": "x"}`)
	require.NoError(t, err)
	assert.NotContains(t, fields, "Id")

	_, content, err := Macro(fields, Vars{})
	require.NoError(t, err)
	assert.Equal(t, "```go\nfmt.Println()```", content)

	_, err = ParseTemplate(`not json`)
	assert.Error(t, err)
	_, err = ParseTemplate(`null`)
	assert.Error(t, err)
	_, err = ParseTemplate(`[1, 2]`)
	assert.Error(t, err)
}

func TestMacroSubstitutesVars(t *testing.T) {
	fields, err := ParseTemplate(`{
		"content": "Welcome {user}!",
		"embed": {"title": "{guild}", "description": "see #{channel}",
		          "fields": [{"name": "who", "value": "{user}"}], "footer": {"text": "{guild}"}}
	}`)
	require.NoError(t, err)

	embed, content, err := Macro(fields, Vars{User: "Jameson", Guild: "Pilots", Channel: "general"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Jameson!", content)
	require.NotNil(t, embed)
	assert.Equal(t, "Pilots", embed.Title)
	assert.Equal(t, "see #general", embed.Description)
	assert.Equal(t, "Jameson", embed.Fields[0].Value)
	assert.Equal(t, "Pilots", embed.Footer.Text)
}

func TestMacroRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"empty object", `{}`},
		{"empty content", `{"content": ""}`},
		{"content not a string", `{"content": 5}`},
		{"empty embed", `{"embed": {"color": 5}}`},
		{"long title", `{"embed": {"title": "` + strings.Repeat("a", 257) + `"}}`},
		{"long description", `{"embed": {"description": "` + strings.Repeat("a", 4097) + `"}}`},
		{"too many fields", `{"embed": {"title": "t", "fields": [` + strings.TrimSuffix(strings.Repeat(`{"name":"n","value":"v"},`, 26), ",") + `]}}`},
		{"long content", `{"content": "` + strings.Repeat("a", 2001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseTemplate(tt.json)
			require.NoError(t, err)
			_, _, err = Macro(fields, Vars{})
			assert.Error(t, err)
		})
	}
}

func TestTemplateFromMessage(t *testing.T) {
	fields, err := Template("hello", &discordgo.MessageEmbed{Title: "card"})
	require.NoError(t, err)
	embed, content, err := Macro(fields, Vars{})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "card", embed.Title)

	_, err = Template("", nil)
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestQuote(t *testing.T) {
	q := store.Quote{
		ID:          7,
		GuildID:     1,
		ChannelID:   2,
		MessageID:   3,
		ChannelName: "general",
		Content:     "o7 cmdrs",
		AuthorName:  "old#0001",
		ImageURL:    "https://img/x.png",
		Timestamp:   store.Timestamp{Time: time.Date(2019, 5, 1, 12, 30, 0, 0, time.UTC)},
	}

	e := Quote(q, nil)
	assert.Equal(t, Color, e.Color)
	assert.Equal(t, "**Message Link**\n(https://discord.com/channels/1/2/3)\n\n**Message**\no7 cmdrs", e.Description)
	assert.Equal(t, "old#0001", e.Author.Name)
	assert.Equal(t, DefaultAvatarURL, e.Author.IconURL)
	assert.Equal(t, "https://discord.com/channels/1/2/3", e.Author.URL)
	assert.Equal(t, "#general, QuoteId: 7", e.Footer.Text)
	assert.Equal(t, "https://img/x.png", e.Image.URL)
	assert.Equal(t, "2019-05-01T12:30:00Z", e.Timestamp)

	e = Quote(q, &Author{Name: "Nick", AvatarURL: "https://cdn/a.png"})
	assert.Equal(t, "Nick", e.Author.Name)
	assert.Equal(t, "https://cdn/a.png", e.Author.IconURL)

	q.ImageURL = ""
	assert.Nil(t, Quote(q, nil).Image)
}

func TestText(t *testing.T) {
	e := &discordgo.MessageEmbed{
		Title:       "Sol",
		Description: "home",
		Fields:      []*discordgo.MessageEmbedField{{Name: "Security", Value: "High"}},
		Footer:      &discordgo.MessageEmbedFooter{Text: "EDSM"},
	}
	assert.Equal(t, "Sol\nhome\nSecurity: High\nEDSM", Text(e))
	assert.Empty(t, Text(nil))
}

func TestTemplateRoundTripsThroughJSON(t *testing.T) {
	fields, err := Template("x", nil)
	require.NoError(t, err)
	data, err := json.Marshal(store.Macro{ID: "m", Template: fields})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":"m","content":"x"}`, string(data))
}
