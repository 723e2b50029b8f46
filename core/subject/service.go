package subject

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
)

var (
	// errors
	ErrNotFound   = errors.New("subject not found")
	ErrNameExists = errors.New("a subject with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Subject, error)
		GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		Get(ctx context.Context, id string) (Subject, error)
		Update(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(repo Repository) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &service{repo: repo}
}

func (svc *service) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
		}
		return errors.Wrap(err, "checking subject name uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSubject(ctx, Subject{
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	sub, err := svc.Get(ctx, id)
	if err != nil {
		return Subject{}, err
	}

	sub.Name = us.Name
	sub.Description = us.Description
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}
