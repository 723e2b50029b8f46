package grade

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

type Grade struct {
	ID         string      `json:"id" db:"id"`
	StudentID  string      `json:"student_id" db:"student_id"`
	ScheduleID string      `json:"schedule_id" db:"schedule_id"`
	HomeworkID null.String `json:"homework_id" db:"homework_id"`
	Assignment string      `json:"assignment" db:"assignment"`
	Score      float64     `json:"score" db:"score"`
	Comment    null.String `json:"comment" db:"comment"`
	GradedBy   string      `json:"graded_by" db:"graded_by"`
	GradedOn   core.Date   `json:"graded_on" db:"graded_on"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`

	// read-only, from the schedule entry
	ClassID   string `json:"class_id" db:"class_id"`
	SubjectID string `json:"subject_id" db:"subject_id"`
}

// SubjectAverage summarizes the grades of a student in one subject.
type SubjectAverage struct {
	SubjectID   string  `json:"subject_id" db:"subject_id"`
	SubjectName string  `json:"subject_name" db:"subject_name"`
	Count       int     `json:"count" db:"count"`
	Average     float64 `json:"average" db:"average"`
	Min         float64 `json:"min" db:"min"`
	Max         float64 `json:"max" db:"max"`
}

// NewGrade contains information needed to grade a student.
type NewGrade struct {
	StudentID  string      `json:"student_id" validate:"required,uuid"`
	ScheduleID string      `json:"schedule_id" validate:"required,uuid"`
	HomeworkID null.String `json:"homework_id"`
	Assignment string      `json:"assignment" validate:"required,notblank,max=200"`
	Score      *float64    `json:"score" validate:"required"`
	Comment    null.String `json:"comment"`
	GradedOn   core.Date   `json:"graded_on"`
}

func (ng *NewGrade) Validate(validate *validator.Validate, maxScore float64) error {
	ng.Assignment = core.CleanString(ng.Assignment)
	ng.HomeworkID = cleanNullString(ng.HomeworkID)
	ng.Comment = cleanNullString(ng.Comment)
	if ng.GradedOn.IsZero() {
		ng.GradedOn = core.Today()
	}

	if err := validate.Struct(ng); err != nil {
		return err
	}
	return checkScore(*ng.Score, maxScore)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
// Empty fields keep their current value, except for the comment which is always replaced.
type UpdateGrade struct {
	Assignment string      `json:"assignment" validate:"omitempty,max=200"`
	Score      *float64    `json:"score"`
	Comment    null.String `json:"comment"`
	GradedOn   core.Date   `json:"graded_on"`
}

func (ug *UpdateGrade) Validate(orig Grade, validate *validator.Validate, maxScore float64) error {
	if asgmt := core.CleanString(ug.Assignment); asgmt != "" {
		ug.Assignment = asgmt
	} else {
		ug.Assignment = orig.Assignment
	}
	if ug.Score == nil {
		score := orig.Score
		ug.Score = &score
	}
	ug.Comment = cleanNullString(ug.Comment)
	if ug.GradedOn.IsZero() {
		ug.GradedOn = orig.GradedOn
	}

	if err := validate.Struct(ug); err != nil {
		return err
	}
	return checkScore(*ug.Score, maxScore)
}

func checkScore(score, maxScore float64) error {
	if score < 0 || score > maxScore {
		return core.NewFieldError("score", fmt.Sprintf("score must be between 0 and %g", maxScore))
	}
	return nil
}

func cleanNullString(ns null.String) null.String {
	s := core.CleanString(ns.String)
	return null.NewString(s, ns.Valid && s != "")
}

// Filter applies AND on its non-empty fields.
type Filter struct {
	StudentID  string
	ClassID    string
	SubjectID  string
	ScheduleID string
	HomeworkID string
	From       core.Date // GradedOn >= From
	To         core.Date // GradedOn <= To
}
