package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
)

const (
	cachePrefix = "timetable:"
	// cacheVersionKey holds the version the cached timetables are keyed by. It lives outside cachePrefix.
	cacheVersionKey = "timetable-version"
)

var (
	// errors
	ErrNotFound = errors.New("schedule entry not found")
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries returns entries ordered by weekday and start time unless `ordering` says otherwise.
		QueryEntries(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Entry, error)
		GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		UpdateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, ne NewEntry) (Entry, error)
		Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Entry, error)
		Get(ctx context.Context, id string) (Entry, error)
		Update(ctx context.Context, id string, ne NewEntry) (Entry, error)
		Delete(ctx context.Context, id string) error
		Timetable(ctx context.Context, filter Filter) (Timetable, error)
		// StudentTimetable returns the lessons of the student's class that the student attends.
		StudentTimetable(ctx context.Context, studentID string) (Timetable, error)
		// Teaches reports whether the teacher has at least one lesson of the subject with the class.
		Teaches(ctx context.Context, teacherID, classID, subjectID string) (bool, error)
		// InvalidateCache drops every cached timetable.
		InvalidateCache(ctx context.Context)
	}

	service struct {
		db         core.DB
		repo       Repository
		cache      core.Cache
		cacheTTL   time.Duration
		classSvc   class.ServiceInterface
		subjectSvc subject.ServiceInterface
		userSvc    user.ServiceInterface
		logger     core.Logger
	}
)

var _ ServiceInterface = (*service)(nil) // interface compliance check

func NewService(
	db core.DB,
	repo Repository,
	cache core.Cache,
	classSvc class.ServiceInterface,
	subjectSvc subject.ServiceInterface,
	userSvc user.ServiceInterface,
	conf *core.Config,
	logger core.Logger,
) ServiceInterface {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(classSvc, "classSvc"),
		vala.IsNotNil(subjectSvc, "subjectSvc"),
		vala.IsNotNil(userSvc, "userSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{
		db:         db,
		repo:       repo,
		cache:      cache,
		cacheTTL:   conf.Cache.TTL,
		classSvc:   classSvc,
		subjectSvc: subjectSvc,
		userSvc:    userSvc,
		logger:     logger,
	}
}

func (svc *service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	e := ne.entry()
	if err := svc.checkRefs(ctx, e); err != nil {
		return Entry{}, err
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	err := core.InSerializableTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkConflicts(ctx, e, tx); err != nil {
			return err
		}
		var err error
		e, err = svc.repo.CreateEntry(ctx, e, tx)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	svc.InvalidateCache(ctx)
	return e, nil
}

// checkRefs validates the class, subgroup, subject and teacher `e` refers to.
func (svc *service) checkRefs(ctx context.Context, e Entry) error {
	var fieldErrs []core.FieldError

	if _, err := svc.classSvc.Get(ctx, e.ClassID); err != nil {
		if errors.Cause(err) != class.ErrNotFound {
			return errors.Wrap(err, "getting class")
		}
		fieldErrs = append(fieldErrs, core.FieldError{Field: "class_id", Error: class.ErrNotFound.Error()})
	} else if e.SubgroupID.Valid {
		if _, err = svc.classSvc.GetSubgroup(ctx, e.ClassID, e.SubgroupID.String); err != nil {
			if errors.Cause(err) != class.ErrSubgroupNotFound {
				return errors.Wrap(err, "getting subgroup")
			}
			fieldErrs = append(fieldErrs, core.FieldError{Field: "subgroup_id", Error: "subgroup not found in this class"})
		}
	}

	if _, err := svc.subjectSvc.Get(ctx, e.SubjectID); err != nil {
		if errors.Cause(err) != subject.ErrNotFound {
			return errors.Wrap(err, "getting subject")
		}
		fieldErrs = append(fieldErrs, core.FieldError{Field: "subject_id", Error: subject.ErrNotFound.Error()})
	}

	if e.TeacherID.Valid {
		teacher, err := svc.userSvc.GetByID(ctx, e.TeacherID.String)
		switch {
		case err != nil && errors.Cause(err) != user.ErrNotFound:
			return errors.Wrap(err, "getting teacher")
		case err != nil:
			fieldErrs = append(fieldErrs, core.FieldError{Field: "teacher_id", Error: user.ErrNotFound.Error()})
		case !teacher.IsTeacher():
			fieldErrs = append(fieldErrs, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
		}
	}

	if len(fieldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid schedule entry"), fieldErrs...)
	}
	return nil
}

// checkConflicts makes sure `e` does not clash with another entry. It runs in the transaction that writes `e`.
func (svc *service) checkConflicts(ctx context.Context, e Entry, tx core.DBExecutor) error {
	sameDay, err := svc.repo.QueryEntries(ctx, &Filter{Weekday: e.Weekday}, nil, tx)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	if conflicts := FindConflicts(e, sameDay); len(conflicts) > 0 {
		return core.NewValidationError(errors.New("schedule conflict"), conflicts...)
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ne NewEntry) (Entry, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}

	e := ne.entry()
	e.ID = orig.ID
	e.CreatedAt = orig.CreatedAt
	if err = svc.checkRefs(ctx, e); err != nil {
		return Entry{}, err
	}

	e.UpdatedAt = time.Now().UTC()
	err = core.InSerializableTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkConflicts(ctx, e, tx); err != nil {
			return err
		}
		var err error
		e, err = svc.repo.UpdateEntry(ctx, e, tx)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	svc.InvalidateCache(ctx)
	return e, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteEntry(ctx, id); err != nil {
		return err
	}
	svc.InvalidateCache(ctx)
	return nil
}

func (svc *service) Timetable(ctx context.Context, filter Filter) (Timetable, error) {
	entries, err := svc.cachedEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return BuildTimetable(entries), nil
}

func (svc *service) StudentTimetable(ctx context.Context, studentID string) (Timetable, error) {
	cls, err := svc.classSvc.ClassOf(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return Timetable{}, nil
		}
		return nil, errors.Wrap(err, "getting student class")
	}
	sgIDs, err := svc.classSvc.StudentSubgroups(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student subgroups")
	}

	entries, err := svc.cachedEntries(ctx, Filter{ClassID: cls.ID})
	if err != nil {
		return nil, err
	}
	attended := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.AttendedBy(sgIDs) {
			attended = append(attended, e)
		}
	}
	return BuildTimetable(attended), nil
}

func (svc *service) Teaches(ctx context.Context, teacherID, classID, subjectID string) (bool, error) {
	entries, err := svc.repo.QueryEntries(ctx, &Filter{ClassID: classID, SubjectID: subjectID, TeacherID: teacherID}, nil)
	if err != nil {
		return false, errors.Wrap(err, "querying entries")
	}
	return len(entries) > 0, nil
}

// cachedEntries falls back to the repository whenever the cache misbehaves. Entries are cached under the current
// version, and not at all if the version moved while they were being read.
func (svc *service) cachedEntries(ctx context.Context, filter Filter) ([]Entry, error) {
	version, err := svc.cacheVersion(ctx)
	if err != nil {
		svc.logger.Warn("reading timetable cache version", err)
		return svc.queryEntries(ctx, filter)
	}
	key := filter.cacheKey(version)

	var entries []Entry
	found, err := svc.cache.Get(ctx, key, &entries)
	if err != nil {
		svc.logger.Warn("reading timetable cache", err, map[string]interface{}{"key": key})
	} else if found {
		return entries, nil
	}

	if entries, err = svc.queryEntries(ctx, filter); err != nil {
		return nil, err
	}
	if current, err := svc.cacheVersion(ctx); err != nil || current != version {
		return entries, nil
	}
	if err = svc.cache.Set(ctx, key, entries, svc.cacheTTL); err != nil {
		svc.logger.Warn("writing timetable cache", err, map[string]interface{}{"key": key})
	}
	return entries, nil
}

func (svc *service) queryEntries(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := svc.repo.QueryEntries(ctx, &filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	return entries, nil
}

// cacheVersion returns "" until the cache is first invalidated.
func (svc *service) cacheVersion(ctx context.Context) (string, error) {
	var version string
	if _, err := svc.cache.Get(ctx, cacheVersionKey, &version); err != nil {
		return "", err
	}
	return version, nil
}

// InvalidateCache moves the cache to a new version, so timetables cached under the previous one are never read
// again, then drops them.
func (svc *service) InvalidateCache(ctx context.Context) {
	if err := svc.cache.Set(ctx, cacheVersionKey, uuid.New().String(), 0); err != nil {
		svc.logger.Error("bumping timetable cache version", err)
	}
	if err := svc.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		svc.logger.Error("invalidating timetable cache", err)
	}
}
