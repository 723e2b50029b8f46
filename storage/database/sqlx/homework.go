package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/homework"
)

const homeworkTable = "homework"

var (
	homeworkColumns  = []string{"id", "class_id", "subgroup_id", "subject_id", "title", "description", "due_date", "created_by", "created_at", "updated_at"}
	homeworkOrdering = map[string]string{
		"title":      "title",
		"due_date":   "due_date",
		"created_at": "created_at",
	}
)

type homeworkRepository struct {
	baseRepo
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db core.DB) *homeworkRepository {
	return &homeworkRepository{baseRepo: newBaseRepo(db)}
}

func (repo homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework, exec ...core.DBExecutor) (homework.Homework, error) {
	hw.ID = newID()
	hw.CreatedAt = hw.CreatedAt.UTC()
	hw.UpdatedAt = hw.UpdatedAt.UTC()

	query := repo.sb.Insert(homeworkTable).
		Columns(homeworkColumns...).
		Values(hw.ID, hw.ClassID, hw.SubgroupID, hw.SubjectID, hw.Title, hw.Description, hw.DueDate, hw.CreatedBy, hw.CreatedAt, hw.UpdatedAt)
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return homework.Homework{}, errors.Wrap(err, "inserting homework")
	}
	return hw, nil
}

func (repo homeworkRepository) QueryHomework(ctx context.Context, filter *homework.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]homework.Homework, error) {
	query := repo.sb.Select(homeworkColumns...).From(homeworkTable)
	if filter != nil {
		if filter.IDs != nil {
			query = query.Where(sq.Eq{"id": filter.IDs})
		}
		if filter.ClassID != "" {
			query = query.Where(sq.Eq{"class_id": filter.ClassID})
		}
		if filter.SubjectID != "" {
			query = query.Where(sq.Eq{"subject_id": filter.SubjectID})
		}
		if filter.SubgroupID != "" {
			query = query.Where(sq.Eq{"subgroup_id": filter.SubgroupID})
		}
		if filter.Subgroups != nil {
			query = query.Where(sq.Or{sq.Eq{"subgroup_id": nil}, sq.Eq{"subgroup_id": filter.Subgroups}})
		}
		if !filter.DueFrom.IsZero() {
			query = query.Where(sq.GtOrEq{"due_date": filter.DueFrom})
		}
		if !filter.DueTo.IsZero() {
			query = query.Where(sq.LtOrEq{"due_date": filter.DueTo})
		}
		if filter.CreatedBy != "" {
			query = query.Where(sq.Eq{"created_by": filter.CreatedBy})
		}
	}
	query = query.OrderBy(orderBy(ordering, homeworkOrdering, "due_date ASC", "created_at ASC")...)

	hws := make([]homework.Homework, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &hws, query); err != nil {
		return nil, errors.Wrap(err, "querying homework")
	}
	return hws, nil
}

func (repo homeworkRepository) GetHomework(ctx context.Context, id string, exec ...core.DBExecutor) (homework.Homework, error) {
	if !isUUID(id) {
		return homework.Homework{}, homework.ErrNotFound
	}
	var hw homework.Homework
	query := repo.sb.Select(homeworkColumns...).From(homeworkTable).Where(sq.Eq{"id": id})
	if err := repo.selectOne(ctx, repo.getExec(exec), &hw, query); err != nil {
		return homework.Homework{}, trapNoRowsErr(err, homework.ErrNotFound, "finding homework")
	}
	return hw, nil
}

func (repo homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework, exec ...core.DBExecutor) (homework.Homework, error) {
	hw.UpdatedAt = hw.UpdatedAt.UTC()
	query := repo.sb.Update(homeworkTable).
		Set("title", hw.Title).
		Set("description", hw.Description).
		Set("due_date", hw.DueDate).
		Set("updated_at", hw.UpdatedAt).
		Where(sq.Eq{"id": hw.ID})
	cnt, err := repo.execute(ctx, repo.getExec(exec), query)
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "updating homework")
	}
	if cnt == 0 {
		return homework.Homework{}, homework.ErrNotFound
	}
	return hw, nil
}

func (repo homeworkRepository) DeleteHomework(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(homeworkTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	if cnt == 0 {
		return homework.ErrNotFound
	}
	return nil
}
