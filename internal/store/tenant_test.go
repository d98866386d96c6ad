package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepository struct {
	*MemoryRepository
	mu   sync.Mutex
	fail bool
}

func (r *failingRepository) Save(ctx context.Context, id uint64, doc *Document) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.MemoryRepository.Save(ctx, id, doc)
}

func (r *failingRepository) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func testQuote(content string) Quote {
	return Quote{
		MessageID:   3,
		ChannelName: "general",
		Content:     content,
		AuthorID:    4,
		AuthorName:  "cmdr#0001",
		Timestamp:   Timestamp{time.Date(2019, 5, 1, 12, 30, 0, 0, time.UTC)},
		ChannelID:   2,
		GuildID:     1,
	}
}

func testMacro(id, content string) Macro {
	return Macro{ID: id, Template: map[string]json.RawMessage{
		"content": json.RawMessage(fmt.Sprintf("%q", content)),
	}}
}

func getTenant(t *testing.T, repo Repository, id uint64) *Tenant {
	t.Helper()
	tenant, err := NewManager(repo, nil).Get(context.Background(), id)
	require.NoError(t, err)
	return tenant
}

func TestQuoteIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	tenant := getTenant(t, NewMemoryRepository(), 1)

	first, err := tenant.AddQuote(ctx, testQuote("a"))
	require.NoError(t, err)
	second, err := tenant.AddQuote(ctx, testQuote("b"))
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Greater(t, second, first)

	removed, err := tenant.RemoveQuote(ctx, first)
	require.NoError(t, err)
	assert.True(t, removed)

	third, err := tenant.AddQuote(ctx, testQuote("c"))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Greater(t, third, second)

	removed, err = tenant.RemoveQuote(ctx, first)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEmptyTenant(t *testing.T) {
	tenant := getTenant(t, NewMemoryRepository(), 1)

	_, ok := tenant.Quote(0)
	assert.False(t, ok)
	_, ok = tenant.RandomQuote()
	assert.False(t, ok)
	_, ok = tenant.Macro("anything")
	assert.False(t, ok)
	assert.Empty(t, tenant.MacroIDs())
}

func TestRandomQuoteCoversAllQuotes(t *testing.T) {
	ctx := context.Background()
	tenant := getTenant(t, NewMemoryRepository(), 1)
	for i := 0; i < 3; i++ {
		_, err := tenant.AddQuote(ctx, testQuote(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	seen := map[int]bool{}
	for i := 0; i < 500 && len(seen) < 3; i++ {
		q, ok := tenant.RandomQuote()
		require.True(t, ok)
		seen[q.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestSetMacroOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tenant := getTenant(t, repo, 1)

	require.NoError(t, tenant.SetMacro(ctx, testMacro("hello-1", "first")))
	require.NoError(t, tenant.SetMacro(ctx, testMacro("hello-1", "second")))

	assert.Equal(t, []string{"hello-1"}, tenant.MacroIDs())
	m, ok := tenant.Macro("hello-1")
	require.True(t, ok)
	assert.JSONEq(t, `"second"`, string(m.Template["content"]))

	removed, err := tenant.RemoveMacro(ctx, "hello-1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = tenant.RemoveMacro(ctx, "hello-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetMacroRejectsEmptyID(t *testing.T) {
	tenant := getTenant(t, NewMemoryRepository(), 1)
	err := tenant.SetMacro(context.Background(), testMacro("", "x"))
	assert.ErrorIs(t, err, ErrEmptyMacroID)
	assert.Empty(t, tenant.MacroIDs())
}

func TestPersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepository{MemoryRepository: NewMemoryRepository()}
	tenant := getTenant(t, repo, 7)

	id, err := tenant.AddQuote(ctx, testQuote("kept"))
	require.NoError(t, err)
	require.NoError(t, tenant.SetMacro(ctx, testMacro("m", "kept")))

	repo.setFail(true)

	_, err = tenant.AddQuote(ctx, testQuote("lost"))
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, uint64(7), perr.TenantID)
	assert.Equal(t, 1, tenant.QuoteCount())
	assert.Equal(t, 1, tenant.NextQuoteID())

	removed, err := tenant.RemoveQuote(ctx, id)
	assert.Error(t, err)
	assert.False(t, removed)
	_, ok := tenant.Quote(id)
	assert.True(t, ok)

	assert.Error(t, tenant.SetMacro(ctx, testMacro("m", "changed")))
	m, _ := tenant.Macro("m")
	assert.JSONEq(t, `"kept"`, string(m.Template["content"]))
	assert.Error(t, tenant.SetMacro(ctx, testMacro("new", "x")))
	_, ok = tenant.Macro("new")
	assert.False(t, ok)

	_, err = tenant.RemoveMacro(ctx, "m")
	assert.Error(t, err)
	_, ok = tenant.Macro("m")
	assert.True(t, ok)

	repo.setFail(false)
	next, err := tenant.AddQuote(ctx, testQuote("after"))
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestConcurrentAddQuote(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	mgr := NewManager(repo, nil)

	const n = 50
	ids := make([]int, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tenant, err := mgr.Get(ctx, 9)
			if !assert.NoError(t, err) {
				return
			}
			ids[i], err = tenant.AddQuote(ctx, testQuote(fmt.Sprint(i)))
			assert.NoError(t, err)
		}(i)
	}
	close(start)
	wg.Wait()

	unique := map[int]bool{}
	for _, id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, n)

	doc, err := repo.Load(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, doc.Quotes, n)
	assert.Equal(t, n, doc.QuoteID)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tenant := getTenant(t, repo, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, tenant.SetMacro(ctx, testMacro(fmt.Sprintf("m%d", i), fmt.Sprint(i))))
	}
	embed := Macro{ID: "embedded", Template: map[string]json.RawMessage{
		"embed": json.RawMessage(`{"title":"Hi"}`),
	}}
	require.NoError(t, tenant.SetMacro(ctx, embed))
	removed, err := tenant.RemoveMacro(ctx, "embedded")
	require.NoError(t, err)
	require.True(t, removed)

	for i := 0; i < 6; i++ {
		_, err := tenant.AddQuote(ctx, testQuote(fmt.Sprint("quote ", i)))
		require.NoError(t, err)
	}
	_, err = tenant.RemoveQuote(ctx, 2)
	require.NoError(t, err)

	want := tenant.Snapshot()
	require.Len(t, want.Macros, 3)
	require.Len(t, want.Quotes, 5)

	reloaded := getTenant(t, repo, 3)
	got := reloaded.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 6, reloaded.NextQuoteID())
}

func TestManagerReturnsSameTenant(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemoryRepository(), nil)
	a, err := mgr.Get(ctx, 1)
	require.NoError(t, err)
	b, err := mgr.Get(ctx, 1)
	require.NoError(t, err)
	c, err := mgr.Get(ctx, 2)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.ElementsMatch(t, []uint64{1, 2}, mgr.Loaded())
}

type brokenRepository struct {
	*MemoryRepository
	loads int
}

func (r *brokenRepository) Load(ctx context.Context, id uint64) (*Document, error) {
	r.loads++
	if r.loads == 1 {
		return nil, errors.New("connection refused")
	}
	return r.MemoryRepository.Load(ctx, id)
}

func TestManagerDoesNotCacheFailedLoad(t *testing.T) {
	ctx := context.Background()
	repo := &brokenRepository{MemoryRepository: NewMemoryRepository()}
	mgr := NewManager(repo, nil)

	_, err := mgr.Get(ctx, 1)
	assert.ErrorContains(t, err, "connection refused")

	tenant, err := mgr.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tenant.ID())
}

type closingRepository struct {
	*MemoryRepository
	closed bool
}

func (r *closingRepository) Close() error {
	r.closed = true
	return nil
}

func TestManagerCloseFlushes(t *testing.T) {
	ctx := context.Background()
	repo := &closingRepository{MemoryRepository: NewMemoryRepository()}
	mgr := NewManager(repo, nil)
	_, err := mgr.Get(ctx, 5)
	require.NoError(t, err)

	_, ok := repo.Raw(5)
	require.False(t, ok)

	require.NoError(t, mgr.Close(ctx))
	assert.True(t, repo.closed)
	raw, ok := repo.Raw(5)
	require.True(t, ok)
	assert.JSONEq(t, `{"QuoteId":0,"Macros":[],"Quotes":[]}`, string(raw))
}
