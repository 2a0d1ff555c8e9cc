// Package sqlite stores records in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"

	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect is the SQLite flavour of the shared upsert statements.
var Dialect = sqlstore.Dialect{
	Goose:         "sqlite3",
	Placeholder:   func(int) string { return "?" },
	EncodeUint256: func(v *big.Int) interface{} { return v.String() },
}

// Store provides SQLite persistence for records and indexer state.
type Store struct {
	db         *sql.DB
	statements map[model.Kind]string
	logger     *zap.Logger
}

// Open opens the database at path. Migrate must be called before first use.
// logger may be nil.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, statements: sqlstore.Statements(Dialect), logger: logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies the embedded schema.
func (s *Store) Migrate(ctx context.Context) error {
	return sqlstore.Migrate(ctx, s.db, migrations, Dialect.Goose, "migrations", s.logger)
}

// Upsert inserts the record under id or overwrites the row already stored there.
func (s *Store) Upsert(ctx context.Context, kind model.Kind, id model.RecordID, record model.Record) error {
	schema, ok := model.SchemaFor(kind)
	if !ok {
		return fmt.Errorf("unknown record kind: %s", kind)
	}
	args, err := sqlstore.Args(schema, id, record, Dialect)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.statements[kind], args...)
	return err
}

// Count returns the number of rows stored for kind.
func (s *Store) Count(ctx context.Context, kind model.Kind) (int, error) {
	schema, ok := model.SchemaFor(kind)
	if !ok {
		return 0, fmt.Errorf("unknown record kind: %s", kind)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.Table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindRoot returns the earliest RootSubmitted row carrying root.
func (s *Store) FindRoot(ctx context.Context, root common.Hash) (model.RootSubmitted, bool, error) {
	submitted, err := sqlstore.ScanRootSubmitted(s.db.QueryRowContext(ctx, sqlstore.FindRootQuery(Dialect), root.Bytes()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RootSubmitted{}, false, nil
		}
		return model.RootSubmitted{}, false, err
	}
	return submitted, true, nil
}

// PaymentClaims returns every PaymentClaimed row in chain order.
func (s *Store) PaymentClaims(ctx context.Context) ([]model.PaymentClaimed, error) {
	rows, err := s.db.QueryContext(ctx, sqlstore.PaymentClaimsQuery(Dialect))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []model.PaymentClaimed
	for rows.Next() {
		claim, err := sqlstore.ScanPaymentClaimed(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// LoadState returns last_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.db.QueryRowContext(ctx, `SELECT last_block FROM indexer_state WHERE name = ?`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_state (name, last_block, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, updated_at = EXCLUDED.updated_at
	`, name, int64(block), time.Now().Unix())
	return err
}
