package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/grade"
)

const gradesTable = "grades"

var (
	gradeColumns = []string{
		"g.id", "g.student_id", "g.schedule_id", "g.homework_id", "g.assignment", "g.score", "g.comment",
		"g.graded_by", "g.graded_on", "g.created_at", "g.updated_at", "s.class_id", "s.subject_id",
	}
	gradeOrdering = map[string]string{
		"assignment": "g.assignment",
		"score":      "g.score",
		"graded_on":  "g.graded_on",
		"created_at": "g.created_at",
	}
)

type gradeRepository struct {
	baseRepo
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) *gradeRepository {
	return &gradeRepository{baseRepo: newBaseRepo(db)}
}

func (repo gradeRepository) selectGrades() sq.SelectBuilder {
	return repo.sb.Select(gradeColumns...).
		From(gradesTable + " g").
		Join(schedulesTable + " s ON s.id = g.schedule_id")
}

func (repo gradeRepository) CreateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	exe := repo.getExec(exec)
	g.ID = newID()

	query := repo.sb.Insert(gradesTable).
		Columns("id", "student_id", "schedule_id", "homework_id", "assignment", "score", "comment", "graded_by", "graded_on", "created_at", "updated_at").
		Values(g.ID, g.StudentID, g.ScheduleID, g.HomeworkID, g.Assignment, g.Score, g.Comment, g.GradedBy, g.GradedOn, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if _, err := repo.execute(ctx, exe, query); err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return repo.GetGrade(ctx, g.ID, exe)
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter *grade.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]grade.Grade, error) {
	query := repo.selectGrades()
	if filter != nil {
		if filter.StudentID != "" {
			query = query.Where(sq.Eq{"g.student_id": filter.StudentID})
		}
		if filter.ClassID != "" {
			query = query.Where(sq.Eq{"s.class_id": filter.ClassID})
		}
		if filter.SubjectID != "" {
			query = query.Where(sq.Eq{"s.subject_id": filter.SubjectID})
		}
		if filter.ScheduleID != "" {
			query = query.Where(sq.Eq{"g.schedule_id": filter.ScheduleID})
		}
		if filter.HomeworkID != "" {
			query = query.Where(sq.Eq{"g.homework_id": filter.HomeworkID})
		}
		if !filter.From.IsZero() {
			query = query.Where(sq.GtOrEq{"g.graded_on": filter.From})
		}
		if !filter.To.IsZero() {
			query = query.Where(sq.LtOrEq{"g.graded_on": filter.To})
		}
	}
	query = query.OrderBy(orderBy(ordering, gradeOrdering, "g.graded_on DESC", "g.created_at DESC")...)

	grades := make([]grade.Grade, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &grades, query); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (grade.Grade, error) {
	if !isUUID(id) {
		return grade.Grade{}, grade.ErrNotFound
	}
	var g grade.Grade
	if err := repo.selectOne(ctx, repo.getExec(exec), &g, repo.selectGrades().Where(sq.Eq{"g.id": id})); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "finding grade")
	}
	return g, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	exe := repo.getExec(exec)
	query := repo.sb.Update(gradesTable).
		Set("assignment", g.Assignment).
		Set("score", g.Score).
		Set("comment", g.Comment).
		Set("graded_on", g.GradedOn).
		Set("updated_at", g.UpdatedAt.UTC()).
		Where(sq.Eq{"id": g.ID})
	cnt, err := repo.execute(ctx, exe, query)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if cnt == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return repo.GetGrade(ctx, g.ID, exe)
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(gradesTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if cnt == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (repo gradeRepository) Averages(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]grade.SubjectAverage, error) {
	query := repo.sb.Select(
		"sub.id AS subject_id",
		"sub.name AS subject_name",
		"COUNT(g.id) AS count",
		"AVG(g.score) AS average",
		"MIN(g.score) AS min",
		"MAX(g.score) AS max",
	).
		From(gradesTable+" g").
		Join(schedulesTable+" s ON s.id = g.schedule_id").
		Join(subjectsTable+" sub ON sub.id = s.subject_id").
		Where(sq.Eq{"g.student_id": studentID}).
		GroupBy("sub.id", "sub.name").
		OrderBy("sub.name ASC")

	avgs := make([]grade.SubjectAverage, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &avgs, query); err != nil {
		return nil, errors.Wrap(err, "computing grade averages")
	}
	return avgs, nil
}
