package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/keshon/orcabot/datastore"
)

// FileRepository stores each tenant document as <dir>/<tenant>.json.
type FileRepository struct {
	ds     *datastore.DataStore
	logger *zap.Logger
}

func NewFileRepository(dir string, logger *zap.Logger) (*FileRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := datastore.DefaultConfig(dir)
	cfg.Logger = logger
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &FileRepository{ds: ds, logger: logger}, nil
}

func (r *FileRepository) Load(_ context.Context, tenantID uint64) (*Document, error) {
	key := strconv.FormatUint(tenantID, 10)
	data, err := r.ds.Read(key)
	if errors.Is(err, datastore.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, skipped, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.ds.Path(key), err)
	}
	if skipped > 0 {
		r.logger.Warn("dropped invalid entries", zap.Uint64("tenant", tenantID), zap.Int("skipped", skipped))
	}
	return doc, nil
}

func (r *FileRepository) Save(ctx context.Context, tenantID uint64, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	return r.ds.Write(strconv.FormatUint(tenantID, 10), data)
}

// Tenants lists the ids of every stored tenant.
func (r *FileRepository) Tenants() ([]uint64, error) {
	keys, err := r.ds.Keys()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(keys))
	for _, k := range keys {
		if id, err := strconv.ParseUint(k, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *FileRepository) Close() error { return r.ds.Close() }
