// Package sqlite stores tenant documents in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/keshon/orcabot/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS tenant_documents (
	tenant_id  TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Repository persists tenant documents in SQLite.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Repository{db: db, logger: logger}, nil
}

func (r *Repository) Load(ctx context.Context, tenantID uint64) (*store.Document, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM tenant_documents WHERE tenant_id = ?`,
		strconv.FormatUint(tenantID, 10),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant %d: %w", tenantID, err)
	}
	doc, skipped, err := store.DecodeDocument([]byte(data))
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.logger.Warn("dropped invalid entries", zap.Uint64("tenant", tenantID), zap.Int("skipped", skipped))
	}
	return doc, nil
}

func (r *Repository) Save(ctx context.Context, tenantID uint64, doc *store.Document) error {
	data, err := store.EncodeDocument(doc)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tenant_documents (tenant_id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		strconv.FormatUint(tenantID, 10), string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save tenant %d: %w", tenantID, err)
	}
	return nil
}

// Close closes the SQLite handle.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
