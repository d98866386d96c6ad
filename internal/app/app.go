// Package app wires configuration into the services both binaries share.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/commands"
	"github.com/keshon/orcabot/internal/config"
	"github.com/keshon/orcabot/internal/elite"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/internal/store/mongo"
	"github.com/keshon/orcabot/internal/store/sqlite"
	"github.com/keshon/orcabot/internal/webreq"
	"github.com/keshon/orcabot/pkg/cmd"
	"github.com/keshon/orcabot/pkg/retrylimit"
)

// SQLiteFile is the database name inside STORE_PATH.
const SQLiteFile = "orcabot.db"

// Services are the long-lived parts of a running bot.
type Services struct {
	Stores     *store.Manager
	Registry   *cmd.Registry
	Dispatcher *cmd.Dispatcher
}

// OpenRepository opens the store backend named by cfg.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return store.NewFileRepository(cfg.StorePath, logger)
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.StorePath, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		return sqlite.Open(filepath.Join(cfg.StorePath, SQLiteFile), logger)
	case config.BackendMongo:
		mc := mongo.DefaultConfig()
		mc.URI = cfg.MongoURI
		if cfg.MongoDatabase != "" {
			mc.Database = cfg.MongoDatabase
		}
		return mongo.Connect(ctx, mc, logger)
	case config.BackendMemory:
		return store.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Build opens the store and registers every command.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	repo, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	stores := store.NewManager(repo, logger.Named("store"))

	client := webreq.New(webreq.Options{
		Timeout:    cfg.HTTPTimeout,
		HTTPClient: &http.Client{},
		Limiter:    retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
		Logger:     logger.Named("webreq"),
	})

	registry := cmd.NewRegistry()
	err = commands.RegisterAll(registry, commands.Deps{
		Stores:         stores,
		EDSM:           elite.NewEDSM(client, elite.DefaultEDSMURL),
		Inara:          elite.NewInara(client, elite.DefaultInaraURL, cfg.InaraAppName, cfg.InaraAPIKey),
		PrivilegedRole: cfg.PrivilegedRole,
		Prefix:         cfg.CommandPrefix,
		Timeout:        cfg.CommandTimeout,
		Logger:         logger.Named("commands"),
	})
	if err != nil {
		return nil, errors.Join(err, stores.Close(ctx))
	}

	return &Services{
		Stores:     stores,
		Registry:   registry,
		Dispatcher: cmd.NewDispatcher(registry, logger.Named("dispatch")),
	}, nil
}

// Close stops the dispatcher and flushes every tenant.
func (s *Services) Close(ctx context.Context) error {
	s.Dispatcher.Close()
	return s.Stores.Close(ctx)
}
