package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is implemented by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		DriverName() string
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

// InTransaction runs fn inside a transaction, committing if it succeeds and rolling back otherwise.
func InTransaction(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	return inTransaction(ctx, db, nil, fn)
}

// InSerializableTransaction is InTransaction at the serializable isolation level, for read-check-write sequences
// that must not interleave with one another.
func InSerializableTransaction(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	return inTransaction(ctx, db, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func inTransaction(ctx context.Context, db DB, opts *sql.TxOptions, fn func(tx DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
