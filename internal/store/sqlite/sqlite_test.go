package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orcabot/internal/store"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orcabot.db")
	repo, err := Open(path, nil)
	require.NoError(t, err)

	_, err = repo.Load(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	mgr := store.NewManager(repo, nil)
	tenant, err := mgr.Get(ctx, 1)
	require.NoError(t, err)
	_, err = tenant.AddQuote(ctx, store.Quote{
		Content:   "o7",
		GuildID:   1,
		Timestamp: store.Timestamp{Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	require.NoError(t, tenant.SetMacro(ctx, store.Macro{
		ID:       "hello",
		Template: map[string]json.RawMessage{"content": json.RawMessage(`"hi"`)},
	}))
	_, err = tenant.AddQuote(ctx, store.Quote{Content: "again", GuildID: 1})
	require.NoError(t, err)
	require.NoError(t, mgr.Close(ctx))

	repo, err = Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	doc, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.QuoteID)
	require.Len(t, doc.Quotes, 2)
	assert.Equal(t, "o7", doc.Quotes[0].Content)
	require.Len(t, doc.Macros, 1)
	assert.Equal(t, "hello", doc.Macros[0].ID)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ", nil)
	assert.Error(t, err)
}
