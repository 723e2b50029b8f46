package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/attendance"
)

const attendanceTable = "attendance"

var (
	attendanceColumns = []string{
		"a.id", "a.schedule_id", "a.student_id", "a.lesson_date", "a.status", "a.note",
		"a.marked_by", "a.created_at", "a.updated_at",
	}
	attendanceOrdering = map[string]string{
		"lesson_date": "a.lesson_date",
		"status":      "a.status",
		"created_at":  "a.created_at",
	}
)

type attendanceRepository struct {
	baseRepo
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DB) *attendanceRepository {
	return &attendanceRepository{baseRepo: newBaseRepo(db)}
}

func (repo attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record, exec ...core.DBExecutor) error {
	if len(records) == 0 {
		return nil
	}

	query := repo.sb.Insert(attendanceTable).
		Columns("id", "schedule_id", "student_id", "lesson_date", "status", "note", "marked_by", "created_at", "updated_at")
	for _, r := range records {
		query = query.Values(newID(), r.ScheduleID, r.StudentID, r.LessonDate, r.Status, r.Note, r.MarkedBy, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	}
	query = query.Suffix(`ON CONFLICT (schedule_id, student_id, lesson_date) DO UPDATE SET
		status = EXCLUDED.status, note = EXCLUDED.note, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`)

	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return errors.Wrap(err, "upserting attendance records")
	}
	return nil
}

func (repo attendanceRepository) where(query sq.SelectBuilder, filter *attendance.Filter) sq.SelectBuilder {
	if filter == nil {
		return query
	}
	if filter.ScheduleID != "" {
		query = query.Where(sq.Eq{"a.schedule_id": filter.ScheduleID})
	}
	if filter.StudentID != "" {
		query = query.Where(sq.Eq{"a.student_id": filter.StudentID})
	}
	if filter.ClassID != "" {
		query = query.
			Join(schedulesTable + " s ON s.id = a.schedule_id").
			Where(sq.Eq{"s.class_id": filter.ClassID})
	}
	if filter.Status != "" {
		query = query.Where(sq.Eq{"a.status": filter.Status})
	}
	if !filter.From.IsZero() {
		query = query.Where(sq.GtOrEq{"a.lesson_date": filter.From})
	}
	if !filter.To.IsZero() {
		query = query.Where(sq.LtOrEq{"a.lesson_date": filter.To})
	}
	return query
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Record, error) {
	query := repo.where(repo.sb.Select(attendanceColumns...).From(attendanceTable+" a"), filter)
	query = query.OrderBy(orderBy(ordering, attendanceOrdering, "a.lesson_date DESC", "a.schedule_id ASC", "a.student_id ASC")...)

	records := make([]attendance.Record, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &records, query); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return records, nil
}

func (repo attendanceRepository) CountByStatus(ctx context.Context, filter *attendance.Filter, exec ...core.DBExecutor) (map[attendance.Status]int, error) {
	query := repo.where(repo.sb.Select("a.status", "COUNT(*) AS count").From(attendanceTable+" a"), filter).
		GroupBy("a.status")

	var rows []struct {
		Status attendance.Status `db:"status"`
		Count  int               `db:"count"`
	}
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "counting attendance records")
	}
	counts := make(map[attendance.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
