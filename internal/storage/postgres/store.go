package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect is the Postgres flavour of the shared upsert statements.
var Dialect = sqlstore.Dialect{
	Goose:       "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	EncodeUint256: func(v *big.Int) interface{} {
		return pgtype.Numeric{Int: new(big.Int).Set(v), Valid: true}
	},
	TextCast: func(column string) string { return column + "::text" },
}

// Store provides Postgres persistence for records and indexer state.
type Store struct {
	pool       *pgxpool.Pool
	statements map[model.Kind]string
	logger     *zap.Logger
}

// NewStore connects to dsn. logger may be nil.
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, statements: sqlstore.Statements(Dialect), logger: logger}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies the embedded schema.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return sqlstore.Migrate(ctx, db, migrations, Dialect.Goose, "migrations", s.logger)
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
	_, err = s.pool.Exec(ctx, s.statements[kind], args...)
	return err
}

// FindRoot returns the earliest RootSubmitted row carrying root.
func (s *Store) FindRoot(ctx context.Context, root common.Hash) (model.RootSubmitted, bool, error) {
	submitted, err := sqlstore.ScanRootSubmitted(s.pool.QueryRow(ctx, sqlstore.FindRootQuery(Dialect), root.Bytes()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RootSubmitted{}, false, nil
		}
		return model.RootSubmitted{}, false, err
	}
	return submitted, true, nil
}

// PaymentClaims returns every PaymentClaimed row in chain order.
func (s *Store) PaymentClaims(ctx context.Context) ([]model.PaymentClaimed, error) {
	rows, err := s.pool.Query(ctx, sqlstore.PaymentClaimsQuery(Dialect))
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
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, updated_at = now()
	`, name, int64(block))
	return err
}
