package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/subject"
)

const subjectsTable = "subjects"

var (
	subjectColumns  = []string{"id", "name", "description", "created_at", "updated_at"}
	subjectOrdering = map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
)

type subjectRepository struct {
	baseRepo
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db core.DB) *subjectRepository {
	return &subjectRepository{baseRepo: newBaseRepo(db)}
}

func (repo subjectRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs []string, exec ...core.DBExecutor) error {
	query := repo.sb.Select().From(subjectsTable).Where(sq.Expr("LOWER(name) = ?", strings.ToLower(name)))
	if len(excludedIDs) > 0 {
		query = query.Where(sq.NotEq{"id": excludedIDs})
	}
	exists, err := repo.exists(ctx, repo.getExec(exec), query)
	if err != nil {
		return errors.Wrap(err, "checking subject name uniqueness")
	}
	if exists {
		return subject.ErrNameExists
	}
	return nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	sub.ID = newID()
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()

	query := repo.sb.Insert(subjectsTable).
		Columns(subjectColumns...).
		Values(sub.ID, sub.Name, sub.Description, sub.CreatedAt, sub.UpdatedAt)
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]subject.Subject, error) {
	query := repo.sb.Select(subjectColumns...).From(subjectsTable)
	if filter != nil && filter.Search != "" {
		query = query.Where(ilike(searchPattern(filter.Search), "name", "description"))
	}
	query = query.OrderBy(orderBy(ordering, subjectOrdering, "name ASC")...)

	subjects := make([]subject.Subject, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &subjects, query); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (subject.Subject, error) {
	if !isUUID(id) {
		return subject.Subject{}, subject.ErrNotFound
	}
	var sub subject.Subject
	query := repo.sb.Select(subjectColumns...).From(subjectsTable).Where(sq.Eq{"id": id})
	if err := repo.selectOne(ctx, repo.getExec(exec), &sub, query); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject")
	}
	return sub, nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	query := repo.sb.Update(subjectsTable).
		Set("name", sub.Name).
		Set("description", sub.Description).
		Set("updated_at", sub.UpdatedAt).
		Where(sq.Eq{"id": sub.ID})
	cnt, err := repo.execute(ctx, repo.getExec(exec), query)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if cnt == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(subjectsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if cnt == 0 {
		return subject.ErrNotFound
	}
	return nil
}
