package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/attendance"
	"github.com/classbook/classbook/core/user"
)

type attendanceApi struct {
	svc      attendance.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/attendance", authed...)
	ag.GET("", api.query)
	ag.POST("", api.mark, staffMiddleware())
	ag.GET("/summary", api.summary)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	records, err := api.svc.Mark(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	params := newQueryParams(ctx)
	filter := &attendance.Filter{
		ScheduleID: params.String("schedule_id"),
		StudentID:  params.String("student_id"),
		ClassID:    params.String("class_id"),
		Status:     attendance.Status(params.String("status")),
		From:       params.Date("from"),
		To:         params.Date("to"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		params.invalid("status", "status must be one of present, absent, late, excused")
	}
	if err := params.Err(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if readsOwnDataOnly(ctxUsr) {
		filter.StudentID = ctxUsr.ID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	params := newQueryParams(ctx)
	studentID := params.String("student_id")
	from, to := params.Date("from"), params.Date("to")
	if err := params.Err(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if readsOwnDataOnly(ctxUsr) {
		studentID = ctxUsr.ID
	} else if studentID == "" {
		return core.NewFieldError("student_id", "student_id is required")
	}

	summary, err := api.svc.Summary(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}
