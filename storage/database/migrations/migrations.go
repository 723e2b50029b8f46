// Package migrations holds the versioned database migrations applied by goose.
// SQL and Go migration files are embedded; Go migrations also register themselves on import.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// goose dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// FS holds the migrations, at its root. goose only runs the registered Go migrations whose file it finds here.
//
//go:embed *.sql *.go
var FS embed.FS

var (
	dialect   = DialectPostgres
	dialectMu sync.RWMutex
)

// Dialect returns the goose dialect matching a database/sql driver name.
func Dialect(driverName string) string {
	switch driverName {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// SetDialect selects the SQL flavour used by the Go migrations.
func SetDialect(d string) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialect = d
}

func currentDialect() string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	return dialect
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var q string
	bindType := sqlx.QUESTION
	switch currentDialect() {
	case DialectSQLite:
		q = "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	default:
		q = "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?"
		bindType = sqlx.DOLLAR
	}

	var cnt int
	if err := tx.QueryRowContext(ctx, sqlx.Rebind(bindType, q), table, column).Scan(&cnt); err != nil {
		return false, errors.Wrapf(err, "checking column %s.%s", table, column)
	}
	return cnt > 0, nil
}

// addColumn is a no-op when the column already exists, so the migration can be re-applied safely.
func addColumn(ctx context.Context, tx *sql.Tx, table, column, definition string) error {
	exists, err := columnExists(ctx, tx, table, column)
	if err != nil || exists {
		return err
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return errors.Wrapf(err, "adding column %s.%s", table, column)
	}
	return nil
}

func dropColumn(ctx context.Context, tx *sql.Tx, table, column string) error {
	exists, err := columnExists(ctx, tx, table, column)
	if err != nil || !exists {
		return err
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column)); err != nil {
		return errors.Wrapf(err, "dropping column %s.%s", table, column)
	}
	return nil
}
