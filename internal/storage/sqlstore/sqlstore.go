// Package sqlstore builds the upsert statements and arguments shared by the
// SQL record stores.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"claimingIndexer/internal/model"
)

// Provenance columns present on every record table, after the payload columns.
var provenanceColumns = []string{"block_number", "block_timestamp", "transaction_hash"}

// Dialect captures the differences between SQL engines.
type Dialect struct {
	// Goose is the goose dialect name.
	Goose string
	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder func(n int) string
	// EncodeUint256 converts an unsigned 256-bit value for the driver.
	EncodeUint256 func(v *big.Int) interface{}
	// TextCast renders a uint256 column as base-10 text in a SELECT list.
	// Nil means the column is already text.
	TextCast func(column string) string
}

func (d Dialect) textColumn(column string) string {
	if d.TextCast == nil {
		return column
	}
	return d.TextCast(column)
}

// Columns returns the column list of a record table in insert order.
func Columns(schema model.Schema) []string {
	cols := make([]string, 0, len(schema.Fields)+1+len(provenanceColumns))
	cols = append(cols, "id")
	for _, f := range schema.Fields {
		cols = append(cols, f.Column)
	}
	return append(cols, provenanceColumns...)
}

// UpsertStatement returns an INSERT .. ON CONFLICT (id) DO UPDATE statement
// for schema.
func UpsertStatement(schema model.Schema, d Dialect) string {
	cols := Columns(schema)
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = d.Placeholder(i + 1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		schema.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// Statements builds the upsert statement of every kind.
func Statements(d Dialect) map[model.Kind]string {
	out := make(map[model.Kind]string, len(model.Kinds()))
	for _, schema := range model.Schemas() {
		out[schema.Kind] = UpsertStatement(schema, d)
	}
	return out
}

// Args returns the bind arguments matching UpsertStatement for record stored
// under id.
func Args(schema model.Schema, id model.RecordID, record model.Record, d Dialect) ([]interface{}, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("record id is empty")
	}
	args := make([]interface{}, 0, len(schema.Fields)+1+len(provenanceColumns))
	args = append(args, []byte(id))

	for _, f := range schema.Fields {
		value, ok := record.Get(f.Source)
		if !ok {
			return nil, fmt.Errorf("%s record is missing field %s", schema.Kind, f.Source)
		}
		encoded, err := encodeValue(f.Type, value, d)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", schema.Kind, f.Source, err)
		}
		args = append(args, encoded)
	}

	return append(args,
		int64(record.BlockNumber),
		int64(record.BlockTimestamp),
		record.TransactionHash.Bytes(),
	), nil
}

func encodeValue(t model.FieldType, value interface{}, d Dialect) (interface{}, error) {
	switch t {
	case model.TypeAddress:
		addr, ok := value.(common.Address)
		if !ok {
			break
		}
		return addr.Bytes(), nil
	case model.TypeBytes32:
		hash, ok := value.(common.Hash)
		if !ok {
			break
		}
		return hash.Bytes(), nil
	case model.TypeUint16:
		n, ok := value.(uint16)
		if !ok {
			break
		}
		return int64(n), nil
	case model.TypeUint32:
		n, ok := value.(uint32)
		if !ok {
			break
		}
		return int64(n), nil
	case model.TypeUint256:
		n, ok := value.(*big.Int)
		if !ok || n == nil {
			break
		}
		return d.EncodeUint256(n), nil
	}
	return nil, fmt.Errorf("%w: %T as %s", model.ErrIncompatibleType, value, t)
}

var gooseMu sync.Mutex

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(strings.TrimSuffix(format, "\n"), v...)
}

// Migrate applies the goose migrations found in dir of fsys. goose keeps its
// configuration in globals, so calls are serialized.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{sugar: logger.With(zap.String("component", "goose"), zap.String("dialect", dialect)).Sugar()})
	defer goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
