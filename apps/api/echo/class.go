package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/schedule"
)

type classApi struct {
	svc         class.ServiceInterface
	scheduleSvc schedule.ServiceInterface
	validate    *validator.Validate
}

func registerClassAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:         deps.ClassSvc,
		scheduleSvc: deps.ScheduleSvc,
		validate:    deps.Validate,
	}

	cg := g.Group("/classes", authed...)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())

	// enrolment
	cg.GET("/:id/students", api.members, staffMiddleware())
	cg.POST("/:id/students", api.enroll, adminMiddleware())
	cg.DELETE("/:id/students/:studentID", api.unenroll, adminMiddleware())

	// subgroups
	cg.GET("/:id/subgroups", api.subgroups)
	cg.POST("/:id/subgroups", api.createSubgroup, adminMiddleware())
	cg.DELETE("/:id/subgroups/:subgroupID", api.destroySubgroup, adminMiddleware())
	cg.POST("/:id/subgroups/:subgroupID/students", api.assignToSubgroup, adminMiddleware())
	cg.DELETE("/:id/subgroups/:subgroupID/students/:studentID", api.removeFromSubgroup, adminMiddleware())
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	cls, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	params := newQueryParams(ctx)
	filter := &class.QueryFilter{
		Search: params.String("search"),
		Level:  params.Int("level"),
	}
	if err := params.Err(); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	cls, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}

	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(reqCtx, cls, api.validate, api.svc); err != nil {
		return err
	}

	cls, err = api.svc.Update(reqCtx, cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.svc.Delete(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	api.scheduleSvc.InvalidateCache(reqCtx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) members(ctx echo.Context) error {
	members, err := api.svc.Members(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing class members")
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *classApi) enroll(ctx echo.Context) error {
	var data class.StudentIDs
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentIDs")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err := api.svc.Enroll(reqCtx, ctx.Param("id"), data.IDs...); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	// enrolment changes student timetables
	api.scheduleSvc.InvalidateCache(reqCtx)
	return api.members(ctx)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.svc.Unenroll(reqCtx, ctx.Param("id"), ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	api.scheduleSvc.InvalidateCache(reqCtx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) subgroups(ctx echo.Context) error {
	sgs, err := api.svc.Subgroups(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing subgroups")
	}
	return ctx.JSON(http.StatusOK, sgs)
}

func (api *classApi) createSubgroup(ctx echo.Context) error {
	var data class.NewSubgroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubgroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sg, err := api.svc.CreateSubgroup(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating subgroup")
	}
	return ctx.JSON(http.StatusCreated, sg)
}

func (api *classApi) destroySubgroup(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.svc.DeleteSubgroup(reqCtx, ctx.Param("id"), ctx.Param("subgroupID")); err != nil {
		return errors.Wrap(err, "deleting subgroup")
	}
	api.scheduleSvc.InvalidateCache(reqCtx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) assignToSubgroup(ctx echo.Context) error {
	var data class.StudentIDs
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentIDs")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err := api.svc.AssignToSubgroup(reqCtx, ctx.Param("id"), ctx.Param("subgroupID"), data.IDs...); err != nil {
		return errors.Wrap(err, "assigning students to subgroup")
	}
	api.scheduleSvc.InvalidateCache(reqCtx)
	return api.members(ctx)
}

func (api *classApi) removeFromSubgroup(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.svc.RemoveFromSubgroup(reqCtx, ctx.Param("id"), ctx.Param("subgroupID"), ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "removing student from subgroup")
	}
	api.scheduleSvc.InvalidateCache(reqCtx)
	return ctx.NoContent(http.StatusNoContent)
}
