package digcontainer

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/classbook/classbook/apps/api/echo"
	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/attendance"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/grade"
	"github.com/classbook/classbook/core/homework"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
	cachesvc "github.com/classbook/classbook/services/cache"
	emailsvc "github.com/classbook/classbook/services/email"
	logsvc "github.com/classbook/classbook/services/logger"
	"github.com/classbook/classbook/storage/database"
	sqlxrepos "github.com/classbook/classbook/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// CacheCloser releases the connection held by the cache.
	CacheCloser func() error
)

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, loggerParam.Logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newCache(conf *core.Config) (core.Cache, CacheCloser, error) {
	cache, closeFn, err := cachesvc.New(context.Background(), conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to cache")
	}
	return cache, closeFn, nil
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newCache))
	must(c.Provide(emailsvc.NewService))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewClassRepository, dig.As(new(class.Repository))))
	must(c.Provide(sqlxrepos.NewSubjectRepository, dig.As(new(subject.Repository))))
	must(c.Provide(sqlxrepos.NewScheduleRepository, dig.As(new(schedule.Repository))))
	must(c.Provide(sqlxrepos.NewHomeworkRepository, dig.As(new(homework.Repository))))
	must(c.Provide(sqlxrepos.NewGradeRepository, dig.As(new(grade.Repository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(schedule.NewService))
	must(c.Provide(homework.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(attendance.NewService))

	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	UserSvc       user.ServiceInterface
	ClassSvc      class.ServiceInterface
	SubjectSvc    subject.ServiceInterface
	ScheduleSvc   schedule.ServiceInterface
	HomeworkSvc   homework.ServiceInterface
	GradeSvc      grade.ServiceInterface
	AttendanceSvc attendance.ServiceInterface
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newServerDeps(p serverParams) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		ClassSvc:      p.ClassSvc,
		SubjectSvc:    p.SubjectSvc,
		ScheduleSvc:   p.ScheduleSvc,
		HomeworkSvc:   p.HomeworkSvc,
		GradeSvc:      p.GradeSvc,
		AttendanceSvc: p.AttendanceSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	}
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
