package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upScheduleRoomSubgroup, downScheduleRoomSubgroup)
}

func upScheduleRoomSubgroup(ctx context.Context, tx *sql.Tx) error {
	if err := addColumn(ctx, tx, "schedules", "room", "VARCHAR(50) NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if err := addColumn(ctx, tx, "schedules", "subgroup_id", "VARCHAR(36) REFERENCES subgroups (id) ON DELETE CASCADE"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS schedules_class_id_idx ON schedules (class_id)")
	return err
}

func downScheduleRoomSubgroup(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS schedules_class_id_idx"); err != nil {
		return err
	}
	// SQLite cannot drop a column that takes part in a foreign key; the up migration tolerates the leftover.
	if currentDialect() != DialectSQLite {
		if err := dropColumn(ctx, tx, "schedules", "subgroup_id"); err != nil {
			return err
		}
	}
	return dropColumn(ctx, tx, "schedules", "room")
}
