package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/subject"
)

type subjectApi struct {
	svc         subject.ServiceInterface
	scheduleSvc schedule.ServiceInterface
	validate    *validator.Validate
}

func registerSubjectAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := subjectApi{
		svc:         deps.SubjectSvc,
		scheduleSvc: deps.ScheduleSvc,
		validate:    deps.Validate,
	}

	sg := g.Group("/subjects", authed...)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	sub, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) query(ctx echo.Context) error {
	filter := &subject.QueryFilter{Search: ctx.QueryParam("search")}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sub, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}

	var data subject.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(reqCtx, sub, api.validate, api.svc); err != nil {
		return err
	}

	sub, err = api.svc.Update(reqCtx, sub.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.svc.Delete(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	// the subject's lessons are gone too
	api.scheduleSvc.InvalidateCache(reqCtx)
	return ctx.NoContent(http.StatusNoContent)
}
