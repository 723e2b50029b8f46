package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/grade"
	"github.com/classbook/classbook/core/user"
)

type gradeApi struct {
	svc      grade.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{
		svc:      deps.GradeSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	gg := g.Group("/grades", authed...)
	gg.GET("", api.query)
	gg.POST("", api.create, staffMiddleware())
	gg.GET("/averages", api.averages)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update, staffMiddleware())
	gg.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate, api.svc.MaxScore()); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	g, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gradeApi) query(ctx echo.Context) error {
	params := newQueryParams(ctx)
	filter := &grade.Filter{
		StudentID:  params.String("student_id"),
		ClassID:    params.String("class_id"),
		SubjectID:  params.String("subject_id"),
		ScheduleID: params.String("schedule_id"),
		HomeworkID: params.String("homework_id"),
		From:       params.Date("from"),
		To:         params.Date("to"),
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

	grades, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) averages(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	studentID := ctxUsr.ID
	if !readsOwnDataOnly(ctxUsr) {
		if studentID = core.CleanString(ctx.QueryParam("student_id")); studentID == "" {
			return core.NewFieldError("student_id", "student_id is required")
		}
	}

	avgs, err := api.svc.Averages(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing grade averages")
	}
	return ctx.JSON(http.StatusOK, avgs)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	g, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if readsOwnDataOnly(ctxUsr) && g.StudentID != ctxUsr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	g, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}

	var data grade.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(g, api.validate, api.svc.MaxScore()); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	g, err = api.svc.Update(reqCtx, g.ID, data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}
