package grade

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/homework"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("grade not found")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		// QueryGrades orders by GradedOn, most recent first, by default.
		QueryGrades(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Grade, error)
		GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error
		// Averages aggregates the student's grades per subject, ordered by subject name.
		Averages(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]SubjectAverage, error)
	}

	ServiceInterface interface {
		MaxScore() float64
		Create(ctx context.Context, ng NewGrade, grader user.User) (Grade, error)
		Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Grade, error)
		Get(ctx context.Context, id string) (Grade, error)
		Update(ctx context.Context, id string, ug UpdateGrade, editor user.User) (Grade, error)
		Delete(ctx context.Context, id string, editor user.User) error
		Averages(ctx context.Context, studentID string) ([]SubjectAverage, error)
	}

	service struct {
		repo        Repository
		classSvc    class.ServiceInterface
		scheduleSvc schedule.ServiceInterface
		homeworkSvc homework.ServiceInterface
		maxScore    float64
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	classSvc class.ServiceInterface,
	scheduleSvc schedule.ServiceInterface,
	homeworkSvc homework.ServiceInterface,
	conf *core.Config,
) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(classSvc, "classSvc"),
		vala.IsNotNil(scheduleSvc, "scheduleSvc"),
		vala.IsNotNil(homeworkSvc, "homeworkSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{
		repo:        repo,
		classSvc:    classSvc,
		scheduleSvc: scheduleSvc,
		homeworkSvc: homeworkSvc,
		maxScore:    conf.School.MaxGradeScore,
	}
}

func (svc *service) MaxScore() float64 {
	return svc.maxScore
}

func (svc *service) Create(ctx context.Context, ng NewGrade, grader user.User) (Grade, error) {
	entry, err := svc.scheduleSvc.Get(ctx, ng.ScheduleID)
	if err != nil {
		if errors.Cause(err) == schedule.ErrNotFound {
			return Grade{}, core.NewFieldError("schedule_id", schedule.ErrNotFound.Error())
		}
		return Grade{}, errors.Wrap(err, "getting schedule entry")
	}
	if err = checkPermission(grader, entry); err != nil {
		return Grade{}, err
	}

	attends, err := svc.classSvc.Attends(ctx, ng.StudentID, entry.ClassID, entry.SubgroupID.String)
	if err != nil {
		return Grade{}, errors.Wrap(err, "checking student attendance")
	}
	if !attends {
		return Grade{}, core.NewFieldError("student_id", "student does not attend this lesson")
	}

	if ng.HomeworkID.Valid {
		hw, err := svc.homeworkSvc.Get(ctx, ng.HomeworkID.String)
		if err != nil && errors.Cause(err) != homework.ErrNotFound {
			return Grade{}, errors.Wrap(err, "getting homework")
		}
		if err != nil || hw.ClassID != entry.ClassID {
			return Grade{}, core.NewFieldError("homework_id", "homework not found for this class")
		}
	}

	now := time.Now().UTC()
	return svc.repo.CreateGrade(ctx, Grade{
		StudentID:  ng.StudentID,
		ScheduleID: entry.ID,
		HomeworkID: ng.HomeworkID,
		Assignment: ng.Assignment,
		Score:      *ng.Score,
		Comment:    ng.Comment,
		GradedBy:   grader.ID,
		GradedOn:   ng.GradedOn,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// checkPermission lets admins through, and the teacher of the lesson.
func checkPermission(usr user.User, entry schedule.Entry) error {
	if usr.IsAdmin() || (usr.IsTeacher() && entry.TaughtBy(usr.ID)) {
		return nil
	}
	return core.ErrForbidden
}

func (svc *service) checkGradePermission(ctx context.Context, usr user.User, g Grade) error {
	if usr.IsAdmin() {
		return nil
	}
	entry, err := svc.scheduleSvc.Get(ctx, g.ScheduleID)
	if err != nil {
		return errors.Wrap(err, "getting schedule entry")
	}
	return checkPermission(usr, entry)
}

func (svc *service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ug UpdateGrade, editor user.User) (Grade, error) {
	g, err := svc.Get(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if err = svc.checkGradePermission(ctx, editor, g); err != nil {
		return Grade{}, err
	}

	g.Assignment = ug.Assignment
	if ug.Score != nil {
		g.Score = *ug.Score
	}
	g.Comment = ug.Comment
	g.GradedOn = ug.GradedOn
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGrade(ctx, g)
}

func (svc *service) Delete(ctx context.Context, id string, editor user.User) error {
	g, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.checkGradePermission(ctx, editor, g); err != nil {
		return err
	}
	return svc.repo.DeleteGrade(ctx, id)
}

func (svc *service) Averages(ctx context.Context, studentID string) ([]SubjectAverage, error) {
	return svc.repo.Averages(ctx, studentID)
}
