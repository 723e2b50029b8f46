package class

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("class not found")
	ErrNameExists       = errors.New("a class with this name already exists")
	ErrSubgroupNotFound = errors.New("subgroup not found")
	ErrNotEnrolled      = errors.New("student is not enrolled in this class")
	ErrNotInSubgroup    = errors.New("student is not in this subgroup")
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists if a class other than the excluded ones is named `name`.
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)
		UpdateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error

		// Enroll moves the students into the class, dropping their previous subgroup memberships.
		Enroll(ctx context.Context, classID string, studentIDs []string, exec ...core.DBExecutor) error
		Unenroll(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error
		Members(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Member, error)
		ClassOf(ctx context.Context, studentID string, exec ...core.DBExecutor) (Class, error)

		CreateSubgroup(ctx context.Context, sg Subgroup, exec ...core.DBExecutor) (Subgroup, error)
		GetSubgroup(ctx context.Context, id string, exec ...core.DBExecutor) (Subgroup, error)
		QuerySubgroups(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Subgroup, error)
		DeleteSubgroup(ctx context.Context, id string, exec ...core.DBExecutor) error
		AddToSubgroup(ctx context.Context, subgroupID string, studentIDs []string, exec ...core.DBExecutor) error
		RemoveFromSubgroup(ctx context.Context, subgroupID, studentID string, exec ...core.DBExecutor) error
		StudentSubgroups(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]string, error)
	}

	ServiceInterface interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error
		Create(ctx context.Context, nc NewClass) (Class, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		Get(ctx context.Context, id string) (Class, error)
		Update(ctx context.Context, id string, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, id string) error

		Enroll(ctx context.Context, classID string, studentIDs ...string) error
		Unenroll(ctx context.Context, classID, studentID string) error
		Members(ctx context.Context, classID string) ([]Member, error)
		ClassOf(ctx context.Context, studentID string) (Class, error)
		// Attends reports whether the student is enrolled in the class and, if subgroupID is set, in that subgroup.
		Attends(ctx context.Context, studentID, classID, subgroupID string) (bool, error)

		CreateSubgroup(ctx context.Context, classID string, ns NewSubgroup) (Subgroup, error)
		GetSubgroup(ctx context.Context, classID, subgroupID string) (Subgroup, error)
		Subgroups(ctx context.Context, classID string) ([]Subgroup, error)
		DeleteSubgroup(ctx context.Context, classID, subgroupID string) error
		AssignToSubgroup(ctx context.Context, classID, subgroupID string, studentIDs ...string) error
		RemoveFromSubgroup(ctx context.Context, classID, subgroupID, studentID string) error
		StudentSubgroups(ctx context.Context, studentID string) ([]string, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		userSvc user.ServiceInterface
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, userSvc user.ServiceInterface) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(userSvc, "userSvc"),
	).CheckAndPanic()

	return &service{
		db:      db,
		repo:    repo,
		userSvc: userSvc,
	}
}

func (svc *service) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
		}
		return errors.Wrap(err, "checking class name uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		Level:     nc.Level,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.Get(ctx, id)
	if err != nil {
		return Class{}, err
	}

	cls.Name = uc.Name
	if uc.Level != nil {
		cls.Level = *uc.Level
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *service) Enroll(ctx context.Context, classID string, studentIDs ...string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	if _, err := svc.Get(ctx, classID); err != nil {
		return err
	}
	if err := svc.checkStudents(ctx, studentIDs); err != nil {
		return err
	}

	return core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		return errors.Wrap(svc.repo.Enroll(ctx, classID, dedupe(studentIDs), tx), "enrolling students")
	})
}

// checkStudents makes sure every ID belongs to an existing student.
func (svc *service) checkStudents(ctx context.Context, ids []string) error {
	users, err := svc.userSvc.Query(ctx, &user.QueryFilter{IDs: ids}, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	found := make(map[string]user.User, len(users))
	for _, usr := range users {
		found[usr.ID] = usr
	}

	var problems []string
	for _, id := range ids {
		usr, ok := found[id]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("user %s not found", id))
		case !usr.IsStudent():
			problems = append(problems, fmt.Sprintf("%s is not a student", usr.Name))
		}
	}
	if len(problems) > 0 {
		msg := strings.Join(problems, "; ")
		return core.NewFieldError("student_ids", msg)
	}
	return nil
}

func (svc *service) Unenroll(ctx context.Context, classID, studentID string) error {
	return svc.repo.Unenroll(ctx, classID, studentID)
}

func (svc *service) Members(ctx context.Context, classID string) ([]Member, error) {
	if _, err := svc.Get(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.Members(ctx, classID)
}

func (svc *service) ClassOf(ctx context.Context, studentID string) (Class, error) {
	return svc.repo.ClassOf(ctx, studentID)
}

func (svc *service) Attends(ctx context.Context, studentID, classID, subgroupID string) (bool, error) {
	cls, err := svc.ClassOf(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if cls.ID != classID {
		return false, nil
	}
	if subgroupID == "" {
		return true, nil
	}

	sgIDs, err := svc.StudentSubgroups(ctx, studentID)
	if err != nil {
		return false, err
	}
	return core.ContainsString(sgIDs, subgroupID), nil
}

func (svc *service) CreateSubgroup(ctx context.Context, classID string, ns NewSubgroup) (Subgroup, error) {
	sgs, err := svc.Subgroups(ctx, classID)
	if err != nil {
		return Subgroup{}, err
	}
	for _, sg := range sgs {
		if strings.EqualFold(sg.Name, ns.Name) {
			return Subgroup{}, core.NewFieldError("name", "a subgroup with this name already exists in this class")
		}
	}

	return svc.repo.CreateSubgroup(ctx, Subgroup{
		ClassID:   classID,
		Name:      ns.Name,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) GetSubgroup(ctx context.Context, classID, subgroupID string) (Subgroup, error) {
	sg, err := svc.repo.GetSubgroup(ctx, subgroupID)
	if err != nil {
		return Subgroup{}, err
	}
	if sg.ClassID != classID {
		return Subgroup{}, ErrSubgroupNotFound
	}
	return sg, nil
}

func (svc *service) Subgroups(ctx context.Context, classID string) ([]Subgroup, error) {
	if _, err := svc.Get(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubgroups(ctx, classID)
}

func (svc *service) DeleteSubgroup(ctx context.Context, classID, subgroupID string) error {
	if _, err := svc.GetSubgroup(ctx, classID, subgroupID); err != nil {
		return err
	}
	return svc.repo.DeleteSubgroup(ctx, subgroupID)
}

func (svc *service) AssignToSubgroup(ctx context.Context, classID, subgroupID string, studentIDs ...string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	if _, err := svc.GetSubgroup(ctx, classID, subgroupID); err != nil {
		return err
	}

	members, err := svc.repo.Members(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "querying class members")
	}
	enrolled := make(map[string]bool, len(members))
	for _, m := range members {
		enrolled[m.StudentID] = true
	}
	var missing []string
	for _, id := range studentIDs {
		if !enrolled[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return core.NewFieldError("student_ids", fmt.Sprintf("students not enrolled in this class: %s", strings.Join(missing, ", ")))
	}

	return core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		return errors.Wrap(svc.repo.AddToSubgroup(ctx, subgroupID, dedupe(studentIDs), tx), "adding students to subgroup")
	})
}

func (svc *service) RemoveFromSubgroup(ctx context.Context, classID, subgroupID, studentID string) error {
	if _, err := svc.GetSubgroup(ctx, classID, subgroupID); err != nil {
		return err
	}
	return svc.repo.RemoveFromSubgroup(ctx, subgroupID, studentID)
}

func (svc *service) StudentSubgroups(ctx context.Context, studentID string) ([]string, error) {
	return svc.repo.StudentSubgroups(ctx, studentID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
