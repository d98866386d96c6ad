package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned by Repository.Load for a tenant never saved.
	ErrNotFound = errors.New("tenant document not found")
	// ErrEmptyMacroID is returned by SetMacro for a macro without identifier.
	ErrEmptyMacroID = errors.New("macro identifier is empty")
)

// Repository is the persistence boundary of tenant documents. Backends
// (flat files, SQLite, MongoDB, memory) implement it; the tenant logic
// never sees how documents are stored.
type Repository interface {
	Load(ctx context.Context, tenantID uint64) (*Document, error)
	Save(ctx context.Context, tenantID uint64, doc *Document) error
}

// PersistError reports a mutation that was rolled back because its document
// could not be saved.
type PersistError struct {
	TenantID uint64
	Op       string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist tenant %d after %s: %v", e.TenantID, e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UserMessage is shown to the invoking user.
func (e *PersistError) UserMessage() string {
	return "Could not save the change, nothing was stored. Please try again later."
}

// MemoryRepository keeps encoded documents in memory. It backs tests and
// the "memory" store backend.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[uint64][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[uint64][]byte)}
}

func (r *MemoryRepository) Load(_ context.Context, tenantID uint64) (*Document, error) {
	r.mu.RLock()
	data, ok := r.docs[tenantID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	doc, _, err := DecodeDocument(data)
	return doc, err
}

func (r *MemoryRepository) Save(_ context.Context, tenantID uint64, doc *Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.docs[tenantID] = data
	r.mu.Unlock()
	return nil
}

// Raw returns the encoded document of tenantID.
func (r *MemoryRepository) Raw(tenantID uint64) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.docs[tenantID]
	return data, ok
}
