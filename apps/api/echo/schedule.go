package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
)

type scheduleApi struct {
	svc      schedule.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := scheduleApi{
		svc:      deps.ScheduleSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/schedules", authed...)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())

	tg := g.Group("/timetable", authed...)
	tg.GET("", api.timetable)
	tg.GET("/me", api.myTimetable)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *scheduleApi) bindFilter(ctx echo.Context) (schedule.Filter, error) {
	params := newQueryParams(ctx)
	filter := schedule.Filter{
		ClassID:    params.String("class_id"),
		SubgroupID: params.String("subgroup_id"),
		TeacherID:  params.String("teacher_id"),
		SubjectID:  params.String("subject_id"),
		Weekday:    schedule.Weekday(params.Int("weekday")),
		Room:       params.String("room"),
	}
	if filter.Weekday != 0 && !filter.Weekday.Valid() {
		params.invalid("weekday", "weekday must be between 1 (Monday) and 7 (Sunday)")
	}
	if err := params.Err(); err != nil {
		return schedule.Filter{}, err
	}
	filter.Clean()
	return filter, nil
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	entries, err := api.svc.Query(ctx.Request().Context(), &filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedule entries")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting schedule entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) timetable(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	tt, err := api.svc.Timetable(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

// myTimetable returns the lessons a student attends, or the lessons a teacher teaches.
func (api *scheduleApi) myTimetable(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqCtx := ctx.Request().Context()
	var tt schedule.Timetable
	if readsOwnDataOnly(usr) {
		tt, err = api.svc.StudentTimetable(reqCtx, usr.ID)
	} else {
		tt, err = api.svc.Timetable(reqCtx, schedule.Filter{TeacherID: usr.ID})
	}
	if err != nil {
		return errors.Wrap(err, "building timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}
