package homework

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

type Homework struct {
	ID          string      `json:"id" db:"id"`
	ClassID     string      `json:"class_id" db:"class_id"`
	SubgroupID  null.String `json:"subgroup_id" db:"subgroup_id"`
	SubjectID   string      `json:"subject_id" db:"subject_id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	DueDate     core.Date   `json:"due_date" db:"due_date"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewHomework contains information needed to assign homework.
type NewHomework struct {
	ClassID     string      `json:"class_id" validate:"required,uuid"`
	SubgroupID  null.String `json:"subgroup_id"`
	SubjectID   string      `json:"subject_id" validate:"required,uuid"`
	Title       string      `json:"title" validate:"required,notblank,max=200"`
	Description null.String `json:"description"`
	DueDate     core.Date   `json:"due_date" validate:"required"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Title = core.CleanString(nh.Title)
	nh.Description = cleanNullString(nh.Description)
	nh.SubgroupID = cleanNullString(nh.SubgroupID)

	if err := validate.Struct(nh); err != nil {
		return err
	}
	return checkDueDate(nh.DueDate)
}

// UpdateHomework defines what information may be provided to modify existing Homework.
// Empty fields keep their current value, except for the description which is always replaced.
type UpdateHomework struct {
	Title       string      `json:"title" validate:"omitempty,max=200"`
	Description null.String `json:"description"`
	DueDate     core.Date   `json:"due_date"`
}

func (uh *UpdateHomework) Validate(orig Homework, validate *validator.Validate) error {
	if title := core.CleanString(uh.Title); title != "" {
		uh.Title = title
	} else {
		uh.Title = orig.Title
	}
	uh.Description = cleanNullString(uh.Description)

	if err := validate.Struct(uh); err != nil {
		return err
	}
	if uh.DueDate.IsZero() || uh.DueDate.Equal(orig.DueDate) {
		uh.DueDate = orig.DueDate
		return nil
	}
	return checkDueDate(uh.DueDate)
}

func checkDueDate(due core.Date) error {
	if due.Before(core.Today()) {
		return core.NewFieldError("due_date", "due date cannot be in the past")
	}
	return nil
}

func cleanNullString(ns null.String) null.String {
	s := core.CleanString(ns.String)
	return null.NewString(s, ns.Valid && s != "")
}

// Filter applies AND on its non-empty fields.
type Filter struct {
	IDs        []string
	ClassID    string
	SubjectID  string
	SubgroupID string
	// Subgroups, when not nil, keeps whole-class homework plus homework of the listed subgroups.
	Subgroups []string
	DueFrom   core.Date
	DueTo     core.Date
	CreatedBy string
}
