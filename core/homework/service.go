package homework

import (
	"bytes"
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("homework not found")
)

type (
	Repository interface {
		CreateHomework(ctx context.Context, hw Homework, exec ...core.DBExecutor) (Homework, error)
		// QueryHomework orders by due date by default.
		QueryHomework(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Homework, error)
		GetHomework(ctx context.Context, id string, exec ...core.DBExecutor) (Homework, error)
		UpdateHomework(ctx context.Context, hw Homework, exec ...core.DBExecutor) (Homework, error)
		DeleteHomework(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, nh NewHomework, author user.User) (Homework, error)
		Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Homework, error)
		Get(ctx context.Context, id string) (Homework, error)
		Update(ctx context.Context, id string, uh UpdateHomework, editor user.User) (Homework, error)
		Delete(ctx context.Context, id string, editor user.User) error
		// Upcoming lists the student's homework due between today and today+within.
		// A zero `within` means the configured homework window.
		Upcoming(ctx context.Context, studentID string, within time.Duration) ([]Homework, error)
		// VisibleTo reports whether the student is among the homework's audience.
		VisibleTo(ctx context.Context, hw Homework, studentID string) (bool, error)
	}

	service struct {
		repo        Repository
		classSvc    class.ServiceInterface
		subjectSvc  subject.ServiceInterface
		scheduleSvc schedule.ServiceInterface
		mailSvc     core.EmailService
		window      time.Duration
		logger      core.Logger
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	classSvc class.ServiceInterface,
	subjectSvc subject.ServiceInterface,
	scheduleSvc schedule.ServiceInterface,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(classSvc, "classSvc"),
		vala.IsNotNil(subjectSvc, "subjectSvc"),
		vala.IsNotNil(scheduleSvc, "scheduleSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{
		repo:        repo,
		classSvc:    classSvc,
		subjectSvc:  subjectSvc,
		scheduleSvc: scheduleSvc,
		mailSvc:     mailSvc,
		window:      conf.School.HomeworkWindow,
		logger:      logger,
	}
}

func (svc *service) Create(ctx context.Context, nh NewHomework, author user.User) (Homework, error) {
	cls, err := svc.classSvc.Get(ctx, nh.ClassID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return Homework{}, core.NewFieldError("class_id", class.ErrNotFound.Error())
		}
		return Homework{}, errors.Wrap(err, "getting class")
	}
	if nh.SubgroupID.Valid {
		if _, err = svc.classSvc.GetSubgroup(ctx, cls.ID, nh.SubgroupID.String); err != nil {
			if errors.Cause(err) == class.ErrSubgroupNotFound {
				return Homework{}, core.NewFieldError("subgroup_id", "subgroup not found in this class")
			}
			return Homework{}, errors.Wrap(err, "getting subgroup")
		}
	}
	sub, err := svc.subjectSvc.Get(ctx, nh.SubjectID)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return Homework{}, core.NewFieldError("subject_id", subject.ErrNotFound.Error())
		}
		return Homework{}, errors.Wrap(err, "getting subject")
	}
	if err = svc.checkPermission(ctx, author, cls.ID, sub.ID); err != nil {
		return Homework{}, err
	}

	now := time.Now().UTC()
	hw, err := svc.repo.CreateHomework(ctx, Homework{
		ClassID:     cls.ID,
		SubgroupID:  nh.SubgroupID,
		SubjectID:   sub.ID,
		Title:       nh.Title,
		Description: nh.Description,
		DueDate:     nh.DueDate,
		CreatedBy:   author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Homework{}, err
	}

	svc.notify(ctx, hw, cls, sub)
	return hw, nil
}

// checkPermission lets admins through, and teachers who teach the subject to the class.
func (svc *service) checkPermission(ctx context.Context, usr user.User, classID, subjectID string) error {
	if usr.IsAdmin() {
		return nil
	}
	if !usr.IsTeacher() {
		return core.ErrForbidden
	}
	ok, err := svc.scheduleSvc.Teaches(ctx, usr.ID, classID, subjectID)
	if err != nil {
		return errors.Wrap(err, "checking teacher schedule")
	}
	if !ok {
		return core.ErrForbidden
	}
	return nil
}

// notify emails the homework to its audience. Failures are logged, not returned.
func (svc *service) notify(ctx context.Context, hw Homework, cls class.Class, sub subject.Subject) {
	members, err := svc.classSvc.Members(ctx, cls.ID)
	if err != nil {
		svc.logger.Error("querying class members for homework notification", err)
		return
	}

	ics := calendarEvent(hw, sub.Name, time.Now())
	var msgs []*core.EmailMessage
	for _, m := range members {
		if m.Email == "" || !m.InSubgroup(hw.SubgroupID.String) {
			continue
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: m.Name, Address: m.Email}},
			Subject:      "New homework: " + hw.Title,
			TemplateName: "homework_assigned",
			TemplateData: map[string]string{
				"StudentName": m.Name,
				"Subject":     sub.Name,
				"Class":       cls.Name,
				"Title":       hw.Title,
				"Description": hw.Description.String,
				"DueDate":     hw.DueDate.String(),
			},
		}
		if err = msg.Attach(bytes.NewReader(ics), calendarFilename, "text/calendar"); err != nil {
			svc.logger.Warn("attaching homework calendar event", err)
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Homework, error) {
	return svc.repo.QueryHomework(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Homework, error) {
	return svc.repo.GetHomework(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uh UpdateHomework, editor user.User) (Homework, error) {
	hw, err := svc.Get(ctx, id)
	if err != nil {
		return Homework{}, err
	}
	if err = svc.checkPermission(ctx, editor, hw.ClassID, hw.SubjectID); err != nil {
		return Homework{}, err
	}

	hw.Title = uh.Title
	hw.Description = uh.Description
	hw.DueDate = uh.DueDate
	hw.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateHomework(ctx, hw)
}

func (svc *service) Delete(ctx context.Context, id string, editor user.User) error {
	hw, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.checkPermission(ctx, editor, hw.ClassID, hw.SubjectID); err != nil {
		return err
	}
	return svc.repo.DeleteHomework(ctx, id)
}

func (svc *service) Upcoming(ctx context.Context, studentID string, within time.Duration) ([]Homework, error) {
	if within <= 0 {
		within = svc.window
	}

	cls, err := svc.classSvc.ClassOf(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return []Homework{}, nil
		}
		return nil, errors.Wrap(err, "getting student class")
	}
	sgIDs, err := svc.classSvc.StudentSubgroups(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student subgroups")
	}
	if sgIDs == nil {
		sgIDs = []string{}
	}

	today := core.Today()
	return svc.repo.QueryHomework(ctx, &Filter{
		ClassID:   cls.ID,
		Subgroups: sgIDs,
		DueFrom:   today,
		DueTo:     today.Add(within),
	}, nil)
}

func (svc *service) VisibleTo(ctx context.Context, hw Homework, studentID string) (bool, error) {
	return svc.classSvc.Attends(ctx, studentID, hw.ClassID, hw.SubgroupID.String)
}
