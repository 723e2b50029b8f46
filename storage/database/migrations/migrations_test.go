package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite", "file:migrations-"+uuid.New().String()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	SetDialect(DialectSQLite)
	goose.SetBaseFS(FS)
	require.NoError(t, goose.SetDialect(DialectSQLite))
	return db
}

func inTx(t *testing.T, db *sqlx.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	if err = fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

var goColumns = []struct{ table, column string }{
	{"schedules", "room"},
	{"schedules", "subgroup_id"},
	{"grades", "comment"},
	{"attendance", "note"},
}

func assertColumns(t *testing.T, db *sqlx.DB) {
	for _, c := range goColumns {
		var exists bool
		require.NoError(t, inTx(t, db, func(ctx context.Context, tx *sql.Tx) (err error) {
			exists, err = columnExists(ctx, tx, c.table, c.column)
			return err
		}))
		assert.True(t, exists, "%s.%s", c.table, c.column)
	}
}

func TestMigrations(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, goose.Up(db.DB, "."))
	version, err := goose.GetDBVersion(db.DB)
	require.NoError(t, err)
	assert.EqualValues(t, 6, version, "Go migrations are applied")
	assertColumns(t, db)

	t.Run("re-applying onto existing columns", func(t *testing.T) {
		for _, up := range []func(context.Context, *sql.Tx) error{upScheduleRoomSubgroup, upGradeCommentAttendanceNote} {
			assert.NoError(t, inTx(t, db, up))
		}
		assertColumns(t, db)
	})

	t.Run("down then up", func(t *testing.T) {
		require.NoError(t, goose.DownTo(db.DB, ".", 3))
		// the subgroup column stays behind on SQLite
		var exists bool
		require.NoError(t, inTx(t, db, func(ctx context.Context, tx *sql.Tx) (err error) {
			exists, err = columnExists(ctx, tx, "schedules", "subgroup_id")
			return err
		}))
		assert.True(t, exists)

		require.NoError(t, goose.Up(db.DB, "."))
		assertColumns(t, db)
	})
}

func TestAddColumn(t *testing.T) {
	db := openSQLite(t)
	_, err := db.Exec("CREATE TABLE rooms (id VARCHAR(36) PRIMARY KEY)")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, inTx(t, db, func(ctx context.Context, tx *sql.Tx) error {
			return addColumn(ctx, tx, "rooms", "capacity", "INTEGER NOT NULL DEFAULT 0")
		}))
	}
	var cnt int
	require.NoError(t, db.Get(&cnt, "SELECT COUNT(*) FROM pragma_table_info('rooms') WHERE name = 'capacity'"))
	assert.Equal(t, 1, cnt)

	for i := 0; i < 2; i++ {
		require.NoError(t, inTx(t, db, func(ctx context.Context, tx *sql.Tx) error {
			return dropColumn(ctx, tx, "rooms", "capacity")
		}))
	}
	require.NoError(t, db.Get(&cnt, "SELECT COUNT(*) FROM pragma_table_info('rooms') WHERE name = 'capacity'"))
	assert.Equal(t, 0, cnt)
}
