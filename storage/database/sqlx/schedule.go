package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/schedule"
)

const schedulesTable = "schedules"

var (
	scheduleColumns  = []string{"id", "class_id", "subgroup_id", "subject_id", "teacher_id", "weekday", "start_time", "end_time", "room", "created_at", "updated_at"}
	scheduleOrdering = map[string]string{
		"weekday":    "weekday",
		"start_time": "start_time",
		"end_time":   "end_time",
		"room":       "room",
		"created_at": "created_at",
	}
)

type scheduleRepository struct {
	baseRepo
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db core.DB) *scheduleRepository {
	return &scheduleRepository{baseRepo: newBaseRepo(db)}
}

func (repo scheduleRepository) CreateEntry(ctx context.Context, e schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	e.ID = newID()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()

	query := repo.sb.Insert(schedulesTable).
		Columns(scheduleColumns...).
		Values(e.ID, e.ClassID, e.SubgroupID, e.SubjectID, e.TeacherID, e.Weekday, e.StartTime, e.EndTime, e.Room, e.CreatedAt, e.UpdatedAt)
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return schedule.Entry{}, errors.Wrap(err, "inserting schedule entry")
	}
	return e, nil
}

func (repo scheduleRepository) QueryEntries(ctx context.Context, filter *schedule.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]schedule.Entry, error) {
	query := repo.sb.Select(scheduleColumns...).From(schedulesTable)
	if filter != nil {
		if filter.ClassID != "" {
			query = query.Where(sq.Eq{"class_id": filter.ClassID})
		}
		if filter.SubgroupID != "" {
			query = query.Where(sq.Eq{"subgroup_id": filter.SubgroupID})
		}
		if filter.TeacherID != "" {
			query = query.Where(sq.Eq{"teacher_id": filter.TeacherID})
		}
		if filter.SubjectID != "" {
			query = query.Where(sq.Eq{"subject_id": filter.SubjectID})
		}
		if filter.Weekday != 0 {
			query = query.Where(sq.Eq{"weekday": filter.Weekday})
		}
		if filter.Room != "" {
			query = query.Where(sq.Eq{"LOWER(room)": strings.ToLower(filter.Room)})
		}
	}
	// "HH:MM" strings sort chronologically
	query = query.OrderBy(orderBy(ordering, scheduleOrdering, "weekday ASC", "start_time ASC", "end_time ASC", "room ASC")...)

	entries := make([]schedule.Entry, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &entries, query); err != nil {
		return nil, errors.Wrap(err, "querying schedule entries")
	}
	return entries, nil
}

func (repo scheduleRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Entry, error) {
	if !isUUID(id) {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	var e schedule.Entry
	query := repo.sb.Select(scheduleColumns...).From(schedulesTable).Where(sq.Eq{"id": id})
	if err := repo.selectOne(ctx, repo.getExec(exec), &e, query); err != nil {
		return schedule.Entry{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding schedule entry")
	}
	return e, nil
}

func (repo scheduleRepository) UpdateEntry(ctx context.Context, e schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	e.UpdatedAt = e.UpdatedAt.UTC()
	query := repo.sb.Update(schedulesTable).
		SetMap(map[string]interface{}{
			"class_id":    e.ClassID,
			"subgroup_id": e.SubgroupID,
			"subject_id":  e.SubjectID,
			"teacher_id":  e.TeacherID,
			"weekday":     e.Weekday,
			"start_time":  e.StartTime,
			"end_time":    e.EndTime,
			"room":        e.Room,
			"updated_at":  e.UpdatedAt,
		}).
		Where(sq.Eq{"id": e.ID})
	cnt, err := repo.execute(ctx, repo.getExec(exec), query)
	if err != nil {
		return schedule.Entry{}, errors.Wrap(err, "updating schedule entry")
	}
	if cnt == 0 {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	return e, nil
}

func (repo scheduleRepository) DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(schedulesTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	if cnt == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
