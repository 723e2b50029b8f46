package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/attendance"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := NewUserRepository(db)
	clsRepo := NewClassRepository(db)
	subRepo := NewSubjectRepository(db)
	schedRepo := NewScheduleRepository(db)
	repo := NewAttendanceRepository(db)

	amy := testutil.CreateUser(t, usrRepo, "Amy", "amy", "", "", []string{user.RoleStudent}, true)
	ben := testutil.CreateUser(t, usrRepo, "Ben", "ben", "", "", []string{user.RoleStudent}, true)
	c9a := testutil.CreateClass(t, clsRepo, "9A", 9)
	c9b := testutil.CreateClass(t, clsRepo, "9B", 9)
	maths := testutil.CreateSubject(t, subRepo, "Mathematics")
	lesson := testutil.CreateEntry(t, schedRepo, schedule.Entry{ClassID: c9a.ID, SubjectID: maths.ID, Weekday: schedule.Monday}, "08:00", "08:45")
	otherLesson := testutil.CreateEntry(t, schedRepo, schedule.Entry{ClassID: c9b.ID, SubjectID: maths.ID, Weekday: schedule.Monday}, "08:00", "08:45")

	mon := core.NewDate(2026, time.March, 2)
	record := func(scheduleID, studentID string, date core.Date, status attendance.Status) attendance.Record {
		now := time.Now()
		return attendance.Record{
			ScheduleID: scheduleID,
			StudentID:  studentID,
			LessonDate: date,
			Status:     status,
			MarkedBy:   "teacher",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	require.NoError(t, repo.UpsertRecords(ctx, []attendance.Record{
		record(lesson.ID, amy.ID, mon, attendance.StatusPresent),
		record(lesson.ID, ben.ID, mon, attendance.StatusAbsent),
		record(lesson.ID, amy.ID, mon.AddDays(7), attendance.StatusLate),
		record(otherLesson.ID, amy.ID, mon, attendance.StatusExcused),
	}))
	require.NoError(t, repo.UpsertRecords(ctx, nil))

	t.Run("query", func(t *testing.T) {
		recs, err := repo.QueryRecords(ctx, &attendance.Filter{StudentID: amy.ID, ClassID: c9a.ID}, nil)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "2026-03-09", recs[0].LessonDate.String(), "latest first")
		assert.Equal(t, attendance.StatusLate, recs[0].Status)

		recs, err = repo.QueryRecords(ctx, &attendance.Filter{ScheduleID: lesson.ID, From: mon, To: mon}, nil)
		require.NoError(t, err)
		assert.Len(t, recs, 2)

		recs, err = repo.QueryRecords(ctx, &attendance.Filter{Status: attendance.StatusAbsent}, nil)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, ben.ID, recs[0].StudentID)
	})

	t.Run("marking again overwrites", func(t *testing.T) {
		fix := record(lesson.ID, ben.ID, mon, attendance.StatusExcused)
		fix.Note = null.StringFrom("doctor")
		require.NoError(t, repo.UpsertRecords(ctx, []attendance.Record{fix}))

		recs, err := repo.QueryRecords(ctx, &attendance.Filter{StudentID: ben.ID}, nil)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, attendance.StatusExcused, recs[0].Status)
		assert.Equal(t, "doctor", recs[0].Note.String)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, &attendance.Filter{StudentID: amy.ID})
		require.NoError(t, err)
		assert.Equal(t, map[attendance.Status]int{
			attendance.StatusPresent: 1,
			attendance.StatusLate:    1,
			attendance.StatusExcused: 1,
		}, counts)

		counts, err = repo.CountByStatus(ctx, &attendance.Filter{StudentID: amy.ID, ClassID: c9b.ID})
		require.NoError(t, err)
		assert.Equal(t, map[attendance.Status]int{attendance.StatusExcused: 1}, counts)
	})
}
