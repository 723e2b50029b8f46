package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upGradeCommentAttendanceNote, downGradeCommentAttendanceNote)
}

func upGradeCommentAttendanceNote(ctx context.Context, tx *sql.Tx) error {
	if err := addColumn(ctx, tx, "grades", "comment", "TEXT"); err != nil {
		return err
	}
	return addColumn(ctx, tx, "attendance", "note", "TEXT")
}

func downGradeCommentAttendanceNote(ctx context.Context, tx *sql.Tx) error {
	if err := dropColumn(ctx, tx, "attendance", "note"); err != nil {
		return err
	}
	return dropColumn(ctx, tx, "grades", "comment")
}
