package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/testutil"
)

func TestMigrate(t *testing.T) {
	db := testutil.PrepareDB(t)

	for _, c := range []struct{ table, column string }{
		{"schedules", "room"},
		{"schedules", "subgroup_id"},
		{"grades", "comment"},
		{"attendance", "note"},
	} {
		var cnt int
		require.NoError(t, db.Get(&cnt, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", c.table, c.column))
		assert.Equal(t, 1, cnt, "%s.%s", c.table, c.column)
	}

	var version int
	require.NoError(t, db.Get(&version, "SELECT MAX(version_id) FROM goose_db_version"))
	assert.Equal(t, 6, version)
}
