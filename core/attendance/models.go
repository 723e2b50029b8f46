package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

type Status string

// Statuses
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Record is the attendance of one student at one lesson, i.e. a schedule entry on a given date.
type Record struct {
	ID         string      `json:"id" db:"id"`
	ScheduleID string      `json:"schedule_id" db:"schedule_id"`
	StudentID  string      `json:"student_id" db:"student_id"`
	LessonDate core.Date   `json:"lesson_date" db:"lesson_date"`
	Status     Status      `json:"status" db:"status"`
	Note       null.String `json:"note" db:"note"`
	MarkedBy   string      `json:"marked_by" db:"marked_by"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Mark is the status of one student in a MarkLesson request.
type Mark struct {
	StudentID string      `json:"student_id" validate:"required,uuid"`
	Status    Status      `json:"status" validate:"required,oneof=present absent late excused"`
	Note      null.String `json:"note"`
}

// MarkLesson records the attendance of a lesson.
type MarkLesson struct {
	ScheduleID string    `json:"schedule_id" validate:"required,uuid"`
	LessonDate core.Date `json:"lesson_date" validate:"required"`
	Marks      []Mark    `json:"marks" validate:"required,min=1,dive"`
}

func (ml *MarkLesson) Validate(validate *validator.Validate) error {
	for i := range ml.Marks {
		s := core.CleanString(ml.Marks[i].Note.String)
		ml.Marks[i].Note = null.NewString(s, ml.Marks[i].Note.Valid && s != "")
	}
	if err := validate.Struct(ml); err != nil {
		return err
	}

	if ml.LessonDate.After(core.Today()) {
		return core.NewFieldError("lesson_date", "cannot mark attendance of a future lesson")
	}
	seen := make(map[string]bool, len(ml.Marks))
	for _, m := range ml.Marks {
		if seen[m.StudentID] {
			return core.NewFieldError("marks", "a student is marked more than once")
		}
		seen[m.StudentID] = true
	}
	return nil
}

// Filter applies AND on its non-empty fields.
type Filter struct {
	ScheduleID string
	StudentID  string
	ClassID    string
	Status     Status
	From       core.Date // LessonDate >= From
	To         core.Date // LessonDate <= To
}

// Summary counts the attendance records of a student over a period.
type Summary struct {
	StudentID string    `json:"student_id"`
	From      core.Date `json:"from"`
	To        core.Date `json:"to"`
	Total     int       `json:"total"`
	Present   int       `json:"present"`
	Absent    int       `json:"absent"`
	Late      int       `json:"late"`
	Excused   int       `json:"excused"`
	// Rate is the share of lessons attended, late arrivals included. It is 0 without records.
	Rate float64 `json:"rate"`
}

// NewSummary computes a Summary from per-status counts.
func NewSummary(studentID string, from, to core.Date, counts map[Status]int) Summary {
	s := Summary{
		StudentID: studentID,
		From:      from,
		To:        to,
		Present:   counts[StatusPresent],
		Absent:    counts[StatusAbsent],
		Late:      counts[StatusLate],
		Excused:   counts[StatusExcused],
	}
	s.Total = s.Present + s.Absent + s.Late + s.Excused
	if s.Total > 0 {
		s.Rate = float64(s.Present+s.Late) / float64(s.Total)
	}
	return s
}
