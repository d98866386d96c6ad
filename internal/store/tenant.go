package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"
)

// Tenant holds the macros and quotes of one guild. All operations are
// serialized by the tenant's mutex, and every mutation is saved before it
// returns. A mutation whose save fails is rolled back and reported as a
// *PersistError.
type Tenant struct {
	id   uint64
	repo Repository

	mu          sync.Mutex
	nextQuoteID int
	macros      map[string]Macro
	quotes      map[int]Quote
}

func newTenant(id uint64, repo Repository, doc *Document) *Tenant {
	t := &Tenant{
		id:     id,
		repo:   repo,
		macros: make(map[string]Macro),
		quotes: make(map[int]Quote),
	}
	if doc == nil {
		return t
	}
	t.nextQuoteID = doc.QuoteID
	for _, m := range doc.Macros {
		t.macros[m.ID] = m
	}
	for _, q := range doc.Quotes {
		t.quotes[q.ID] = q
		if q.ID >= t.nextQuoteID {
			t.nextQuoteID = q.ID + 1
		}
	}
	return t
}

// ID returns the tenant (guild) id.
func (t *Tenant) ID() uint64 { return t.id }

// AddQuote allocates the next quote id, stores q under it and returns the id.
// Ids are never reused, including after RemoveQuote.
func (t *Tenant) AddQuote(ctx context.Context, q Quote) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextQuoteID
	q.ID = id
	t.quotes[id] = q
	t.nextQuoteID++
	if err := t.persist(ctx); err != nil {
		delete(t.quotes, id)
		t.nextQuoteID--
		return 0, &PersistError{TenantID: t.id, Op: "add quote", Err: err}
	}
	return id, nil
}

// RemoveQuote deletes quote id and reports whether it existed.
func (t *Tenant) RemoveQuote(ctx context.Context, id int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotes[id]
	if !ok {
		return false, nil
	}
	delete(t.quotes, id)
	if err := t.persist(ctx); err != nil {
		t.quotes[id] = q
		return false, &PersistError{TenantID: t.id, Op: "remove quote", Err: err}
	}
	return true, nil
}

// Quote returns quote id.
func (t *Tenant) Quote(id int) (Quote, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.quotes[id]
	return q, ok
}

// RandomQuote returns a uniformly chosen stored quote, or false when there
// are none.
func (t *Tenant) RandomQuote() (Quote, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.quotes) == 0 {
		return Quote{}, false
	}
	n := rand.Intn(len(t.quotes))
	for _, q := range t.quotes {
		if n == 0 {
			return q, true
		}
		n--
	}
	return Quote{}, false
}

// QuoteCount returns the number of stored quotes.
func (t *Tenant) QuoteCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.quotes)
}

// NextQuoteID returns the id the next AddQuote will allocate.
func (t *Tenant) NextQuoteID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextQuoteID
}

// SetMacro inserts m or replaces the macro with the same identifier.
func (t *Tenant) SetMacro(ctx context.Context, m Macro) error {
	if m.ID == "" {
		return ErrEmptyMacroID
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.macros[m.ID]
	t.macros[m.ID] = m
	if err := t.persist(ctx); err != nil {
		if existed {
			t.macros[m.ID] = prev
		} else {
			delete(t.macros, m.ID)
		}
		return &PersistError{TenantID: t.id, Op: "set macro", Err: err}
	}
	return nil
}

// RemoveMacro deletes macro id and reports whether it existed.
func (t *Tenant) RemoveMacro(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.macros[id]
	if !ok {
		return false, nil
	}
	delete(t.macros, id)
	if err := t.persist(ctx); err != nil {
		t.macros[id] = m
		return false, &PersistError{TenantID: t.id, Op: "remove macro", Err: err}
	}
	return true, nil
}

// Macro returns macro id.
func (t *Tenant) Macro(id string) (Macro, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.macros[id]
	return m, ok
}

// MacroIDs returns the stored macro identifiers in ascending order.
func (t *Tenant) MacroIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.macros))
	for id := range t.macros {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns the tenant as a document.
func (t *Tenant) Snapshot() *Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.document()
}

// Flush saves the current state.
func (t *Tenant) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.persist(ctx); err != nil {
		return &PersistError{TenantID: t.id, Op: "flush", Err: err}
	}
	return nil
}

func (t *Tenant) persist(ctx context.Context) error {
	return t.repo.Save(ctx, t.id, t.document())
}

func (t *Tenant) document() *Document {
	doc := &Document{
		QuoteID: t.nextQuoteID,
		Macros:  make([]Macro, 0, len(t.macros)),
		Quotes:  make([]Quote, 0, len(t.quotes)),
	}
	for _, m := range t.macros {
		doc.Macros = append(doc.Macros, m)
	}
	for _, q := range t.quotes {
		doc.Quotes = append(doc.Quotes, q)
	}
	sort.Slice(doc.Macros, func(i, j int) bool { return doc.Macros[i].ID < doc.Macros[j].ID })
	sort.Slice(doc.Quotes, func(i, j int) bool { return doc.Quotes[i].ID < doc.Quotes[j].ID })
	return doc
}
