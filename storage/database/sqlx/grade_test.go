package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/grade"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func TestGradeRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := NewUserRepository(db)
	clsRepo := NewClassRepository(db)
	subRepo := NewSubjectRepository(db)
	schedRepo := NewScheduleRepository(db)
	repo := NewGradeRepository(db)

	amy := testutil.CreateUser(t, usrRepo, "Amy", "amy", "", "", []string{user.RoleStudent}, true)
	ben := testutil.CreateUser(t, usrRepo, "Ben", "ben", "", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClass(t, clsRepo, "9A", 9)
	maths := testutil.CreateSubject(t, subRepo, "Mathematics")
	bio := testutil.CreateSubject(t, subRepo, "Biology")
	mathsLesson := testutil.CreateEntry(t, schedRepo, schedule.Entry{ClassID: cls.ID, SubjectID: maths.ID, Weekday: schedule.Monday}, "08:00", "08:45")
	bioLesson := testutil.CreateEntry(t, schedRepo, schedule.Entry{ClassID: cls.ID, SubjectID: bio.ID, Weekday: schedule.Tuesday}, "08:00", "08:45")

	day := core.NewDate(2026, time.March, 2)
	create := func(studentID, scheduleID string, score float64, on core.Date) grade.Grade {
		t.Helper()
		now := time.Now()
		g, err := repo.CreateGrade(ctx, grade.Grade{
			StudentID:  studentID,
			ScheduleID: scheduleID,
			Assignment: "Quiz",
			Score:      score,
			GradedBy:   "teacher",
			GradedOn:   on,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		require.NoError(t, err)
		return g
	}

	g1 := create(amy.ID, mathsLesson.ID, 80, day)
	g2 := create(amy.ID, mathsLesson.ID, 60, day.AddDays(7))
	g3 := create(amy.ID, bioLesson.ID, 90, day.AddDays(1))
	g4 := create(ben.ID, mathsLesson.ID, 40, day)

	t.Run("create joins the lesson", func(t *testing.T) {
		assert.Equal(t, cls.ID, g1.ClassID)
		assert.Equal(t, maths.ID, g1.SubjectID)
		assert.Equal(t, bio.ID, g3.SubjectID)
	})

	ids := func(grades []grade.Grade) []string {
		res := make([]string, len(grades))
		for i, g := range grades {
			res[i] = g.ID
		}
		return res
	}

	tests := []struct {
		name   string
		filter *grade.Filter
		want   []string
	}{
		{"student, latest first", &grade.Filter{StudentID: amy.ID}, []string{g2.ID, g3.ID, g1.ID}},
		{"subject", &grade.Filter{SubjectID: maths.ID, StudentID: amy.ID}, []string{g2.ID, g1.ID}},
		{"class, latest created first on the same day", &grade.Filter{ClassID: cls.ID, From: day, To: day}, []string{g4.ID, g1.ID}},
		{"lesson", &grade.Filter{ScheduleID: bioLesson.ID}, []string{g3.ID}},
		{"period", &grade.Filter{From: day.AddDays(1), To: day.AddDays(6)}, []string{g3.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grades, err := repo.QueryGrades(ctx, tc.filter, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(grades))
		})
	}

	t.Run("averages", func(t *testing.T) {
		avgs, err := repo.Averages(ctx, amy.ID)
		require.NoError(t, err)
		assert.Equal(t, []grade.SubjectAverage{
			{SubjectID: bio.ID, SubjectName: "Biology", Count: 1, Average: 90, Min: 90, Max: 90},
			{SubjectID: maths.ID, SubjectName: "Mathematics", Count: 2, Average: 70, Min: 60, Max: 80},
		}, avgs)

		avgs, err = repo.Averages(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, avgs)
	})

	t.Run("update & delete", func(t *testing.T) {
		g1.Score = 85
		g1.Comment = null.StringFrom("better")
		g1.UpdatedAt = time.Now()
		got, err := repo.UpdateGrade(ctx, g1)
		require.NoError(t, err)
		assert.Equal(t, 85.0, got.Score)
		assert.Equal(t, "better", got.Comment.String)

		require.NoError(t, repo.DeleteGrade(ctx, g4.ID))
		_, err = repo.GetGrade(ctx, g4.ID)
		assert.Equal(t, grade.ErrNotFound, err)
		assert.Equal(t, grade.ErrNotFound, repo.DeleteGrade(ctx, g4.ID))
	})
}
