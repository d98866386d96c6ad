package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Manager owns the tenant stores of the process. It is constructed once at
// startup and handed to the commands that need it; Close flushes every
// loaded tenant.
type Manager struct {
	repo   Repository
	logger *zap.Logger

	mu      sync.RWMutex
	tenants map[uint64]*Tenant
	group   singleflight.Group
}

func NewManager(repo Repository, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repo:    repo,
		logger:  logger,
		tenants: make(map[uint64]*Tenant),
	}
}

// Get returns the store of tenantID, loading it from the repository on first
// access. Every call for the same tenant returns the same *Tenant. A failed
// load is not cached.
func (m *Manager) Get(ctx context.Context, tenantID uint64) (*Tenant, error) {
	m.mu.RLock()
	t, ok := m.tenants[tenantID]
	m.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := m.group.Do(strconv.FormatUint(tenantID, 10), func() (any, error) {
		m.mu.RLock()
		t, ok := m.tenants[tenantID]
		m.mu.RUnlock()
		if ok {
			return t, nil
		}

		doc, err := m.repo.Load(ctx, tenantID)
		switch {
		case errors.Is(err, ErrNotFound):
			doc = nil
		case err != nil:
			return nil, fmt.Errorf("load tenant %d: %w", tenantID, err)
		}
		t = newTenant(tenantID, m.repo, doc)
		m.logger.Debug("tenant loaded",
			zap.Uint64("tenant", tenantID),
			zap.Bool("new", doc == nil),
			zap.Int("quotes", len(t.quotes)),
			zap.Int("macros", len(t.macros)))

		m.mu.Lock()
		m.tenants[tenantID] = t
		m.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

// Loaded returns the ids of tenants currently held in memory.
func (m *Manager) Loaded() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint64, 0, len(m.tenants))
	for id := range m.tenants {
		ids = append(ids, id)
	}
	return ids
}

// Close flushes every loaded tenant and closes the repository when it is an
// io.Closer.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	tenants := make([]*Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		tenants = append(tenants, t)
	}
	m.mu.RUnlock()

	var errs []error
	for _, t := range tenants {
		if err := t.Flush(ctx); err != nil {
			m.logger.Error("flush tenant", zap.Uint64("tenant", t.ID()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if c, ok := m.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	return errors.Join(errs...)
}
