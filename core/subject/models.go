package subject

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

type Subject struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name        string      `json:"name" validate:"required,notblank,max=100"`
	Description null.String `json:"description"`
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = cleanDescription(ns.Description)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, ns.Name)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// The description is always replaced.
type UpdateSubject struct {
	Name        string      `json:"name" validate:"omitempty,max=100"`
	Description null.String `json:"description"`
}

func (us *UpdateSubject) Validate(ctx context.Context, orig Subject, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	us.Description = cleanDescription(us.Description)

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, us.Name, orig.ID)
}

type QueryFilter struct {
	Search string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func cleanDescription(desc null.String) null.String {
	s := core.CleanString(desc.String)
	return null.NewString(s, desc.Valid && s != "")
}
