package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
)

type (
	Repository interface {
		// UpsertRecords inserts the records, replacing the status, note and marker of existing
		// (schedule, student, lesson date) records.
		UpsertRecords(ctx context.Context, records []Record, exec ...core.DBExecutor) error
		// QueryRecords orders by lesson date, most recent first, by default.
		QueryRecords(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Record, error)
		CountByStatus(ctx context.Context, filter *Filter, exec ...core.DBExecutor) (map[Status]int, error)
	}

	ServiceInterface interface {
		Mark(ctx context.Context, ml MarkLesson, marker user.User) ([]Record, error)
		Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Record, error)
		Summary(ctx context.Context, studentID string, from, to core.Date) (Summary, error)
	}

	service struct {
		db          core.DB
		repo        Repository
		classSvc    class.ServiceInterface
		scheduleSvc schedule.ServiceInterface
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, classSvc class.ServiceInterface, scheduleSvc schedule.ServiceInterface) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(classSvc, "classSvc"),
		vala.IsNotNil(scheduleSvc, "scheduleSvc"),
	).CheckAndPanic()

	return &service{
		db:          db,
		repo:        repo,
		classSvc:    classSvc,
		scheduleSvc: scheduleSvc,
	}
}

func (svc *service) Mark(ctx context.Context, ml MarkLesson, marker user.User) ([]Record, error) {
	entry, err := svc.scheduleSvc.Get(ctx, ml.ScheduleID)
	if err != nil {
		if errors.Cause(err) == schedule.ErrNotFound {
			return nil, core.NewFieldError("schedule_id", schedule.ErrNotFound.Error())
		}
		return nil, errors.Wrap(err, "getting schedule entry")
	}
	if !marker.IsAdmin() && !(marker.IsTeacher() && entry.TaughtBy(marker.ID)) {
		return nil, core.ErrForbidden
	}
	if wd := schedule.WeekdayOf(ml.LessonDate.Weekday()); wd != entry.Weekday {
		return nil, core.NewFieldError("lesson_date", fmt.Sprintf("the lesson takes place on %s, not %s", entry.Weekday, wd))
	}

	members, err := svc.classSvc.Members(ctx, entry.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class members")
	}
	attendees := make(map[string]bool, len(members))
	for _, m := range members {
		if m.InSubgroup(entry.SubgroupID.String) {
			attendees[m.StudentID] = true
		}
	}

	now := time.Now().UTC()
	records := make([]Record, 0, len(ml.Marks))
	for _, m := range ml.Marks {
		if !attendees[m.StudentID] {
			return nil, core.NewFieldError("marks", fmt.Sprintf("student %s does not attend this lesson", m.StudentID))
		}
		records = append(records, Record{
			ScheduleID: entry.ID,
			StudentID:  m.StudentID,
			LessonDate: ml.LessonDate,
			Status:     m.Status,
			Note:       m.Note,
			MarkedBy:   marker.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	err = core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.repo.UpsertRecords(ctx, records, tx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}
	return svc.repo.QueryRecords(ctx, &Filter{ScheduleID: entry.ID, From: ml.LessonDate, To: ml.LessonDate}, nil)
}

func (svc *service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

func (svc *service) Summary(ctx context.Context, studentID string, from, to core.Date) (Summary, error) {
	counts, err := svc.repo.CountByStatus(ctx, &Filter{StudentID: studentID, From: from, To: to})
	if err != nil {
		return Summary{}, errors.Wrap(err, "counting attendance")
	}
	return NewSummary(studentID, from, to, counts), nil
}
