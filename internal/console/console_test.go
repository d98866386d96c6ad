package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orcabot/internal/commands"
	"github.com/keshon/orcabot/internal/elite"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/internal/webreq"
	"github.com/keshon/orcabot/pkg/cmd"
)

func newRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	stores := store.NewManager(store.NewMemoryRepository(), nil)
	client := webreq.New(webreq.Options{})
	registry := cmd.NewRegistry()
	require.NoError(t, commands.RegisterAll(registry, commands.Deps{
		Stores: stores,
		EDSM:   elite.NewEDSM(client, ""),
		Prefix: "/",
	}))
	d := cmd.NewDispatcher(registry, nil)
	t.Cleanup(d.Close)

	var out bytes.Buffer
	return &Runner{Dispatcher: d, Stores: stores, Prefix: "/", MacroPrefix: ";", Out: NewWriter(&out)}, &out
}

var admin = cmd.Caller{UserID: "1", UserName: "admin", GuildID: "10", ChannelID: "20", Roles: []string{"podrole"}}

func TestExecMacro(t *testing.T) {
	r, out := newRunner(t)
	ctx := context.Background()

	require.NoError(t, r.Exec(ctx, `/macro hi, {"content": "o7 {user}"}`, admin))
	assert.Contains(t, out.String(), "o7 <@1>")

	out.Reset()
	require.NoError(t, r.Exec(ctx, ";hi", admin))
	assert.Equal(t, "o7 <@1>\n", out.String())

	assert.ErrorContains(t, r.Exec(ctx, ";missing", admin), "no macro")
	assert.ErrorContains(t, r.Exec(ctx, ";bad name", admin), "not a valid macro name")
}

func TestExecFailures(t *testing.T) {
	r, _ := newRunner(t)
	ctx := context.Background()

	assert.ErrorContains(t, r.Exec(ctx, "/nope", admin), "unknown command")
	assert.ErrorContains(t, r.Exec(ctx, "quote add https://discord.com/channels/10/20/30", admin), "Message Link")
}

func TestNoMessages(t *testing.T) {
	_, err := noMessages{}.FetchMessage(context.Background(), commands.MessageRef{})
	assert.ErrorIs(t, err, commands.ErrMessageNotFound)
}
