package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"claimingIndexer/internal/claiming"
	"claimingIndexer/internal/config"
	"claimingIndexer/internal/indexer"
	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage/memory"
	"claimingIndexer/internal/storage/postgres"
	"claimingIndexer/internal/storage/sqlite"
)

// recordReader reads stored records back for the distribution commands.
type recordReader interface {
	FindRoot(ctx context.Context, root common.Hash) (model.RootSubmitted, bool, error)
	PaymentClaims(ctx context.Context) ([]model.PaymentClaimed, error)
}

// recordStore is the configured record store plus its optional state table.
type recordStore struct {
	mapping.Store
	reader recordReader
	// state is nil for the memory store.
	state   indexer.StateStore
	memory  *memory.Store
	migrate func(context.Context) error
	close   func()
}

func (s *recordStore) Migrate(ctx context.Context) error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(ctx)
}

func (s *recordStore) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStore opens the backend named by cfg. SQL stores are migrated before
// they are returned.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*recordStore, error) {
	var store *recordStore
	switch cfg.Kind {
	case config.StoreMemory:
		mem := memory.NewStore()
		store = &recordStore{Store: mem, reader: mem, memory: mem}
		logger.Warn("using memory store, records are lost on exit")
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		store = &recordStore{
			Store:   db,
			reader:  db,
			state:   db,
			migrate: db.Migrate,
			close:   func() { _ = db.Close() },
		}
		logger.Info("store opened", zap.String("store", cfg.Kind), zap.String("path", cfg.SQLitePath))
	case config.StorePostgres:
		db, err := postgres.NewStore(ctx, cfg.PGDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = &recordStore{
			Store:   db,
			reader:  db,
			state:   db,
			migrate: db.Migrate,
			close:   db.Close,
		}
		logger.Info("store opened", zap.String("store", cfg.Kind), zap.String("dsn", redactDSN(cfg.PGDSN)))
	default:
		return nil, fmt.Errorf("unsupported store: %q", cfg.Kind)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newDecoder(abiFile string) (*claiming.Decoder, error) {
	contractABI, err := claiming.LoadABI(abiFile)
	if err != nil {
		return nil, err
	}
	return claiming.NewDecoder(contractABI)
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "<redacted>"
	}
	return u.Redacted()
}
