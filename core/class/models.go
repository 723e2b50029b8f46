package class

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classbook/classbook/core"
)

type Class struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Level     int       `json:"level" db:"level"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Subgroup is a named subset of a Class used for split lessons.
type Subgroup struct {
	ID        string    `json:"id" db:"id"`
	ClassID   string    `json:"class_id" db:"class_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Member is a student enrolled in a Class.
type Member struct {
	StudentID   string   `json:"student_id" db:"student_id"`
	Name        string   `json:"name" db:"name"`
	Username    string   `json:"username" db:"username"`
	Email       string   `json:"email" db:"email"`
	SubgroupIDs []string `json:"subgroup_ids" db:"-"`
}

// InSubgroup reports whether the member belongs to the subgroup.
// An empty subgroupID means the whole class.
func (m Member) InSubgroup(subgroupID string) bool {
	return subgroupID == "" || core.ContainsString(m.SubgroupIDs, subgroupID)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name  string `json:"name" validate:"required,notblank,max=50"`
	Level int    `json:"level" validate:"gte=1,lte=12"`
}

func (nc *NewClass) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, nc.Name)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name  string `json:"name" validate:"omitempty,max=50"`
	Level *int   `json:"level" validate:"omitempty,gte=1,lte=12"`
}

func (uc *UpdateClass) Validate(ctx context.Context, orig Class, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if uc.Level == nil {
		level := orig.Level
		uc.Level = &level
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, uc.Name, orig.ID)
}

type NewSubgroup struct {
	Name string `json:"name" validate:"required,notblank,max=50"`
}

func (ns *NewSubgroup) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// StudentIDs is the payload of enrolment requests.
type StudentIDs struct {
	IDs []string `json:"student_ids" validate:"required,min=1,dive,uuid"`
}

func (si StudentIDs) Validate(validate *validator.Validate) error { return validate.Struct(si) }

type QueryFilter struct {
	Search string
	Level  int
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
