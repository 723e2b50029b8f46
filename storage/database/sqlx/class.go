package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
)

const (
	classesTable          = "classes"
	subgroupsTable        = "subgroups"
	classStudentsTable    = "class_students"
	subgroupStudentsTable = "subgroup_students"
)

var (
	classColumns    = []string{"id", "name", "level", "created_at", "updated_at"}
	subgroupColumns = []string{"id", "class_id", "name", "created_at"}
	classOrdering   = map[string]string{
		"name":       "name",
		"level":      "level",
		"created_at": "created_at",
	}
)

type classRepository struct {
	baseRepo
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db core.DB) *classRepository {
	return &classRepository{baseRepo: newBaseRepo(db)}
}

func (repo classRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs []string, exec ...core.DBExecutor) error {
	query := repo.sb.Select().From(classesTable).Where(sq.Expr("LOWER(name) = ?", strings.ToLower(name)))
	if len(excludedIDs) > 0 {
		query = query.Where(sq.NotEq{"id": excludedIDs})
	}
	exists, err := repo.exists(ctx, repo.getExec(exec), query)
	if err != nil {
		return errors.Wrap(err, "checking class name uniqueness")
	}
	if exists {
		return class.ErrNameExists
	}
	return nil
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	cls.ID = newID()
	cls.CreatedAt = cls.CreatedAt.UTC()
	cls.UpdatedAt = cls.UpdatedAt.UTC()

	query := repo.sb.Insert(classesTable).
		Columns(classColumns...).
		Values(cls.ID, cls.Name, cls.Level, cls.CreatedAt, cls.UpdatedAt)
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	query := repo.sb.Select(classColumns...).From(classesTable)
	if filter != nil {
		if filter.Search != "" {
			query = query.Where(ilike(searchPattern(filter.Search), "name"))
		}
		if filter.Level != 0 {
			query = query.Where(sq.Eq{"level": filter.Level})
		}
	}
	query = query.OrderBy(orderBy(ordering, classOrdering, "level ASC", "name ASC")...)

	classes := make([]class.Class, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &classes, query); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (class.Class, error) {
	if !isUUID(id) {
		return class.Class{}, class.ErrNotFound
	}
	var cls class.Class
	query := repo.sb.Select(classColumns...).From(classesTable).Where(sq.Eq{"id": id})
	if err := repo.selectOne(ctx, repo.getExec(exec), &cls, query); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return cls, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	cls.UpdatedAt = cls.UpdatedAt.UTC()
	query := repo.sb.Update(classesTable).
		Set("name", cls.Name).
		Set("level", cls.Level).
		Set("updated_at", cls.UpdatedAt).
		Where(sq.Eq{"id": cls.ID})
	cnt, err := repo.execute(ctx, repo.getExec(exec), query)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if cnt == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(classesTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if cnt == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo classRepository) Enroll(ctx context.Context, classID string, studentIDs []string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	// drop memberships of subgroups from other classes
	leave := repo.sb.Delete(subgroupStudentsTable).
		Where(sq.Eq{"student_id": studentIDs}).
		Where(sq.Expr("subgroup_id NOT IN (SELECT id FROM "+subgroupsTable+" WHERE class_id = ?)", classID))
	if _, err := repo.execute(ctx, exe, leave); err != nil {
		return errors.Wrap(err, "leaving previous subgroups")
	}

	now := time.Now().UTC()
	enroll := repo.sb.Insert(classStudentsTable).Columns("student_id", "class_id", "enrolled_at")
	for _, id := range studentIDs {
		enroll = enroll.Values(id, classID, now)
	}
	enroll = enroll.Suffix("ON CONFLICT (student_id) DO UPDATE SET class_id = EXCLUDED.class_id, enrolled_at = EXCLUDED.enrolled_at")
	if _, err := repo.execute(ctx, exe, enroll); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return nil
}

func (repo classRepository) Unenroll(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	query := repo.sb.Delete(classStudentsTable).Where(sq.Eq{"class_id": classID, "student_id": studentID})
	cnt, err := repo.execute(ctx, exe, query)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	if cnt == 0 {
		return class.ErrNotEnrolled
	}

	leave := repo.sb.Delete(subgroupStudentsTable).
		Where(sq.Eq{"student_id": studentID}).
		Where(sq.Expr("subgroup_id IN (SELECT id FROM "+subgroupsTable+" WHERE class_id = ?)", classID))
	if _, err = repo.execute(ctx, exe, leave); err != nil {
		return errors.Wrap(err, "leaving subgroups")
	}
	return nil
}

func (repo classRepository) Members(ctx context.Context, classID string, exec ...core.DBExecutor) ([]class.Member, error) {
	exe := repo.getExec(exec)

	query := repo.sb.Select("u.id AS student_id", "u.name", "COALESCE(u.username, '') AS username", "COALESCE(u.email, '') AS email").
		From(classStudentsTable + " cs").
		Join(usersTable + " u ON u.id = cs.student_id").
		Where(sq.Eq{"cs.class_id": classID}).
		OrderBy("u.name ASC")
	members := make([]class.Member, 0)
	if err := repo.selectAll(ctx, exe, &members, query); err != nil {
		return nil, errors.Wrap(err, "querying class members")
	}

	var memberships []struct {
		StudentID  string `db:"student_id"`
		SubgroupID string `db:"subgroup_id"`
	}
	query = repo.sb.Select("ss.student_id", "ss.subgroup_id").
		From(subgroupStudentsTable + " ss").
		Join(subgroupsTable + " sg ON sg.id = ss.subgroup_id").
		Where(sq.Eq{"sg.class_id": classID}).
		OrderBy("sg.name ASC")
	if err := repo.selectAll(ctx, exe, &memberships, query); err != nil {
		return nil, errors.Wrap(err, "querying subgroup memberships")
	}

	byStudent := make(map[string][]string)
	for _, m := range memberships {
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m.SubgroupID)
	}
	for i := range members {
		members[i].SubgroupIDs = byStudent[members[i].StudentID]
		if members[i].SubgroupIDs == nil {
			members[i].SubgroupIDs = []string{}
		}
	}
	return members, nil
}

func (repo classRepository) ClassOf(ctx context.Context, studentID string, exec ...core.DBExecutor) (class.Class, error) {
	var cls class.Class
	query := repo.sb.Select("c.id", "c.name", "c.level", "c.created_at", "c.updated_at").
		From(classesTable + " c").
		Join(classStudentsTable + " cs ON cs.class_id = c.id").
		Where(sq.Eq{"cs.student_id": studentID})
	if err := repo.selectOne(ctx, repo.getExec(exec), &cls, query); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding student class")
	}
	return cls, nil
}

func (repo classRepository) CreateSubgroup(ctx context.Context, sg class.Subgroup, exec ...core.DBExecutor) (class.Subgroup, error) {
	sg.ID = newID()
	sg.CreatedAt = sg.CreatedAt.UTC()

	query := repo.sb.Insert(subgroupsTable).
		Columns(subgroupColumns...).
		Values(sg.ID, sg.ClassID, sg.Name, sg.CreatedAt)
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return class.Subgroup{}, errors.Wrap(err, "inserting subgroup")
	}
	return sg, nil
}

func (repo classRepository) GetSubgroup(ctx context.Context, id string, exec ...core.DBExecutor) (class.Subgroup, error) {
	if !isUUID(id) {
		return class.Subgroup{}, class.ErrSubgroupNotFound
	}
	var sg class.Subgroup
	query := repo.sb.Select(subgroupColumns...).From(subgroupsTable).Where(sq.Eq{"id": id})
	if err := repo.selectOne(ctx, repo.getExec(exec), &sg, query); err != nil {
		return class.Subgroup{}, trapNoRowsErr(err, class.ErrSubgroupNotFound, "finding subgroup")
	}
	return sg, nil
}

func (repo classRepository) QuerySubgroups(ctx context.Context, classID string, exec ...core.DBExecutor) ([]class.Subgroup, error) {
	query := repo.sb.Select(subgroupColumns...).From(subgroupsTable).Where(sq.Eq{"class_id": classID}).OrderBy("name ASC")
	sgs := make([]class.Subgroup, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &sgs, query); err != nil {
		return nil, errors.Wrap(err, "querying subgroups")
	}
	return sgs, nil
}

func (repo classRepository) DeleteSubgroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	cnt, err := repo.execute(ctx, repo.getExec(exec), repo.sb.Delete(subgroupsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting subgroup")
	}
	if cnt == 0 {
		return class.ErrSubgroupNotFound
	}
	return nil
}

func (repo classRepository) AddToSubgroup(ctx context.Context, subgroupID string, studentIDs []string, exec ...core.DBExecutor) error {
	query := repo.sb.Insert(subgroupStudentsTable).Columns("subgroup_id", "student_id")
	for _, id := range studentIDs {
		query = query.Values(subgroupID, id)
	}
	query = query.Suffix("ON CONFLICT (subgroup_id, student_id) DO NOTHING")
	if _, err := repo.execute(ctx, repo.getExec(exec), query); err != nil {
		return errors.Wrap(err, "adding subgroup members")
	}
	return nil
}

func (repo classRepository) RemoveFromSubgroup(ctx context.Context, subgroupID, studentID string, exec ...core.DBExecutor) error {
	query := repo.sb.Delete(subgroupStudentsTable).Where(sq.Eq{"subgroup_id": subgroupID, "student_id": studentID})
	cnt, err := repo.execute(ctx, repo.getExec(exec), query)
	if err != nil {
		return errors.Wrap(err, "removing subgroup member")
	}
	if cnt == 0 {
		return class.ErrNotInSubgroup
	}
	return nil
}

func (repo classRepository) StudentSubgroups(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]string, error) {
	query := repo.sb.Select("subgroup_id").From(subgroupStudentsTable).Where(sq.Eq{"student_id": studentID}).OrderBy("subgroup_id ASC")
	ids := make([]string, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &ids, query); err != nil {
		return nil, errors.Wrap(err, "querying student subgroups")
	}
	return ids, nil
}
