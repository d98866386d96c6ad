package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orcabot/internal/elite"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/internal/webreq"
	"github.com/keshon/orcabot/pkg/cmd"
	"github.com/keshon/orcabot/pkg/retrylimit"
)

type sent struct {
	content string
	embeds  []*discordgo.MessageEmbed
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) Send(_ context.Context, content string, embeds ...*discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{content: content, embeds: embeds})
	return nil
}

func (r *recorder) last(t *testing.T) sent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

func (r *recorder) lastEmbed(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	m := r.last(t)
	require.NotEmpty(t, m.embeds)
	return m.embeds[0]
}

type fetcher map[MessageRef]*Message

func (f fetcher) FetchMessage(_ context.Context, ref MessageRef) (*Message, error) {
	m, ok := f[ref]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return m, nil
}

type harness struct {
	dispatcher *cmd.Dispatcher
	stores     *store.Manager
	reply      *recorder
	env        *Env
}

func newHarness(t *testing.T, edsmURL string) *harness {
	t.Helper()
	retry := retrylimit.DefaultConfig()
	retry.MaxAttempts = 1
	client := webreq.New(webreq.Options{
		Timeout: time.Second,
		Limiter: retrylimit.NewAdaptiveLimiter(1000, 1, 1000, 1, 0.5),
		Retry:   &retry,
	})

	h := &harness{
		stores: store.NewManager(store.NewMemoryRepository(), nil),
		reply:  &recorder{},
	}
	h.env = &Env{Reply: h.reply, Fetcher: fetcher{
		{GuildID: 10, ChannelID: 20, MessageID: 30}: {
			Ref:         MessageRef{GuildID: 10, ChannelID: 20, MessageID: 30},
			ChannelName: "general",
			Content:     "fly safe https://example.com/orca.png",
			AuthorID:    40,
			AuthorName:  "cmdr",
			Timestamp:   time.Date(2019, 5, 1, 12, 30, 0, 0, time.UTC),
		},
		{GuildID: 10, ChannelID: 20, MessageID: 31}: {
			Content: "copied",
			Embeds:  []*discordgo.MessageEmbed{{Title: "Copied"}},
		},
	}}

	registry := cmd.NewRegistry()
	require.NoError(t, RegisterAll(registry, Deps{
		Stores:  h.stores,
		EDSM:    elite.NewEDSM(client, edsmURL),
		Inara:   elite.NewInara(client, "", "", ""),
		Prefix:  "/",
		Timeout: 5 * time.Second,
	}))
	h.dispatcher = cmd.NewDispatcher(registry, nil)
	t.Cleanup(h.dispatcher.Close)
	return h
}

var (
	privileged = cmd.Caller{UserID: "1", UserName: "admin", GuildID: "10", ChannelID: "20", Roles: []string{"podrole"}}
	member     = cmd.Caller{UserID: "2", UserName: "member", GuildID: "10", ChannelID: "20"}
	direct     = cmd.Caller{UserID: "2", UserName: "member"}
)

func (h *harness) run(body string, caller cmd.Caller) *cmd.Invocation {
	return h.dispatcher.Dispatch(context.Background(), body, caller, h.env)
}

func TestQuoteLifecycle(t *testing.T) {
	h := newHarness(t, "")

	inv := h.run("quote", member)
	require.NoError(t, inv.Err())
	assert.Equal(t, "No quotes saved for this guild!", h.reply.lastEmbed(t).Description)

	inv = h.run("quote add https://discord.com/channels/10/20/30", privileged)
	require.NoError(t, inv.Err())
	e := h.reply.lastEmbed(t)
	assert.Equal(t, "#general, QuoteId: 0", e.Footer.Text)
	require.NotNil(t, e.Image)
	assert.Equal(t, "https://example.com/orca.png", e.Image.URL)

	inv = h.run("quote 0", member)
	require.NoError(t, inv.Err())
	assert.Contains(t, h.reply.lastEmbed(t).Description, "fly safe")

	inv = h.run("quote 1", member)
	var argErr *cmd.ArgumentError
	require.ErrorAs(t, inv.Err(), &argErr)
	assert.Equal(t, "Out of range! Only `1` quotes stored!", argErr.Reason)

	inv = h.run("quote remove 0", privileged)
	require.NoError(t, inv.Err())
	assert.Equal(t, "Deleted quote `0`", h.reply.lastEmbed(t).Description)

	inv = h.run("quote 0", member)
	require.NoError(t, inv.Err())
	assert.Equal(t, "Could not locate a Quote with Id `0`!", h.reply.lastEmbed(t).Description)

	tenant, err := h.stores.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, tenant.NextQuoteID())
}

func TestQuoteAddRejects(t *testing.T) {
	h := newHarness(t, "")

	inv := h.run("quote add https://discord.com/channels/10/20/30", member)
	var pre *cmd.PreconditionError
	require.ErrorAs(t, inv.Err(), &pre)

	inv = h.run("quote add https://discord.com/channels/11/20/30", privileged)
	var argErr *cmd.ArgumentError
	require.ErrorAs(t, inv.Err(), &argErr)
	assert.Equal(t, "Can only add quotes from this guild!", argErr.Reason)
	assert.Equal(t, "Message Link", argErr.Name)

	inv = h.run("quote add not-a-link", privileged)
	require.ErrorAs(t, inv.Err(), &argErr)

	inv = h.run("quote add https://discord.com/channels/10/20/99", privileged)
	require.ErrorAs(t, inv.Err(), &argErr)

	inv = h.run("quote add https://discord.com/channels/10/20/30", direct)
	require.ErrorAs(t, inv.Err(), &pre)
	assert.Equal(t, cmd.StageArgumentsParsed, inv.Failure.Stage)
}

func TestMacroLifecycle(t *testing.T) {
	h := newHarness(t, "")

	inv := h.run("macrolist", member)
	require.NoError(t, inv.Err())
	assert.Equal(t, "No macros stored for this guild!", h.reply.lastEmbed(t).Description)

	inv = h.run(`macro rules, {"content": "Hello {user}, be nice, fly safe"}`, privileged)
	require.NoError(t, inv.Err())
	assert.Equal(t, "Hello <@1>, be nice, fly safe", h.reply.last(t).content)

	inv = h.run("macro card, https://discord.com/channels/10/20/31", privileged)
	require.NoError(t, inv.Err())
	assert.Equal(t, "Copied", h.reply.lastEmbed(t).Title)

	inv = h.run("macrolist", member)
	require.NoError(t, inv.Err())
	e := h.reply.lastEmbed(t)
	assert.Equal(t, "Macros - 2", e.Title)
	assert.Equal(t, "`card`, `rules`", e.Description)

	inv = h.run("macro card, REMOVE", privileged)
	require.NoError(t, inv.Err())
	assert.Equal(t, "Deleted macro `card`", h.reply.lastEmbed(t).Description)
}

func TestMacroRejects(t *testing.T) {
	h := newHarness(t, "")

	var argErr *cmd.ArgumentError
	inv := h.run(`macro bad name, {"content": "x"}`, privileged)
	require.ErrorAs(t, inv.Err(), &argErr)
	assert.Equal(t, 0, argErr.Index)
	assert.Equal(t, "Not a valid macro name!", argErr.Reason)

	inv = h.run(`macro ok, {"title": "no content"}`, privileged)
	require.ErrorAs(t, inv.Err(), &argErr)
	assert.Equal(t, 1, argErr.Index)

	inv = h.run(`macro ok, not json`, privileged)
	require.ErrorAs(t, inv.Err(), &argErr)

	inv = h.run(`macro ok`, privileged)
	var arity *cmd.ArityError
	require.ErrorAs(t, inv.Err(), &arity)
}

func TestHelp(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("help", direct).Err())
	e := h.reply.lastEmbed(t)
	assert.Contains(t, e.Description, "**Quotes**")
	assert.Contains(t, e.Description, "`/quote add` - Stores a message as a quote")

	require.NoError(t, h.run("help quote add", direct).Err())
	e = h.reply.lastEmbed(t)
	assert.Equal(t, "/quote add", e.Title)
	assert.Contains(t, e.Fields[0].Value, "`/quote add: Message Link`")

	var argErr *cmd.ArgumentError
	require.ErrorAs(t, h.run("help nope", direct).Err(), &argErr)
}

func TestSystemAndDistance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api-v1/system", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sysname") != "Sol" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`{"name":"Sol","id":27,"information":{"security":"High"},"primaryStar":{"type":"G","isScoopable":true}}`))
	})
	mux.HandleFunc("/api-system-v1/stations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":27,"name":"Sol","stations":[{"id":1,"name":"Abraham Lincoln","type":"Orbis Starport","distanceToArrival":492}]}`))
	})
	mux.HandleFunc("/api-system-v1/traffic", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/api-system-v1/deaths", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"deaths":{"total":3,"week":2,"day":1}}`))
	})
	mux.HandleFunc("/api-v1/systems", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Sol","id":27,"coords":{"x":0,"y":0,"z":0}},{"name":"Alpha Centauri","id":28,"coords":{"x":3.03125,"y":-0.09375,"z":3.15625}}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	h := newHarness(t, srv.URL)

	require.NoError(t, h.run("system Sol", direct).Err())
	e := h.reply.lastEmbed(t)
	assert.Equal(t, "__**System Info for Sol**__", e.Title)
	var names []string
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"General Info", "Closest Orbital Large Pad", "No Traffic Report Available", "CMDR Deaths Report"}, names)

	require.NoError(t, h.run("system Nowhere", direct).Err())
	assert.Equal(t, "System not found in database!", h.reply.lastEmbed(t).Description)

	require.NoError(t, h.run("system Sol, webrequests list", direct).Err())
	h.reply.mu.Lock()
	n := len(h.reply.msgs)
	first := h.reply.msgs[n-3].embeds[0]
	h.reply.mu.Unlock()
	assert.Equal(t, "Webrequests", first.Title)
	assert.Equal(t, "Stations in Sol", h.reply.lastEmbed(t).Title)

	require.NoError(t, h.run("distance Sol, Alpha Centauri", direct).Err())
	e = h.reply.lastEmbed(t)
	assert.Contains(t, e.Description, "`4.38 ly`")
}

func TestCmdrWithoutInara(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api-logs-v1/get-position", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msg":"OK","msgnum":100,"system":"Sol","systemId":27,"url":"https://www.edsm.net/en/user/profile/id/1/cmdr/Jameson"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	h := newHarness(t, srv.URL)

	require.NoError(t, h.run("cmdr Jameson", direct).Err())
	m := h.reply.last(t)
	require.Len(t, m.embeds, 2)
	assert.Equal(t, "Inara Request Failed", m.embeds[0].Title)
	assert.Equal(t, "Inara", m.embeds[0].Footer.Text)
	assert.Equal(t, "Jameson's EDSM Profile", m.embeds[1].Author.Name)
}

func TestParseMessageLink(t *testing.T) {
	ref, err := ParseMessageLink("https://discord.com/channels/1/2/3")
	require.NoError(t, err)
	assert.Equal(t, MessageRef{GuildID: 1, ChannelID: 2, MessageID: 3}, ref)

	_, err = ParseMessageLink("https://discord.com/channels/@me/2/3")
	assert.Error(t, err)
	_, err = ParseMessageLink("3")
	assert.Error(t, err)
}

func TestIsImageURL(t *testing.T) {
	assert.True(t, IsImageURL("https://cdn.example.com/a/b.JPG"))
	assert.True(t, IsImageURL("http://example.com/x.webp?size=2"))
	assert.False(t, IsImageURL("ftp://example.com/x.png"))
	assert.False(t, IsImageURL("https://example.com/page"))
	assert.False(t, IsImageURL("orca.png"))
}
