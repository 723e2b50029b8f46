package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/homework"
	"github.com/classbook/classbook/core/user"
)

type homeworkApi struct {
	svc      homework.ServiceInterface
	classSvc class.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerHomeworkAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := homeworkApi{
		svc:      deps.HomeworkSvc,
		classSvc: deps.ClassSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	hg := g.Group("/homework", authed...)
	hg.GET("", api.query)
	hg.POST("", api.create, staffMiddleware())
	hg.GET("/upcoming", api.upcoming, studentMiddleware())
	hg.GET("/:id", api.retrieve)
	hg.PUT("/:id", api.update, staffMiddleware())
	hg.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *homeworkApi) create(ctx echo.Context) error {
	var data homework.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	hw, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating homework")
	}
	return ctx.JSON(http.StatusCreated, hw)
}

func (api *homeworkApi) query(ctx echo.Context) error {
	params := newQueryParams(ctx)
	filter := &homework.Filter{
		IDs:        params.Strings("id"),
		ClassID:    params.String("class_id"),
		SubjectID:  params.String("subject_id"),
		SubgroupID: params.String("subgroup_id"),
		DueFrom:    params.Date("due_from"),
		DueTo:      params.Date("due_to"),
		CreatedBy:  params.String("created_by"),
	}
	if err := params.Err(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reqCtx := ctx.Request().Context()
	if readsOwnDataOnly(ctxUsr) {
		// students only see the homework of their class and subgroups
		cls, err := api.classSvc.ClassOf(reqCtx, ctxUsr.ID)
		if err != nil {
			if errors.Cause(err) == class.ErrNotFound {
				return ctx.JSON(http.StatusOK, []homework.Homework{})
			}
			return errors.Wrap(err, "getting student class")
		}
		sgIDs, err := api.classSvc.StudentSubgroups(reqCtx, ctxUsr.ID)
		if err != nil {
			return errors.Wrap(err, "getting student subgroups")
		}
		if sgIDs == nil {
			sgIDs = []string{}
		}
		filter.ClassID = cls.ID
		filter.Subgroups = sgIDs
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	hws, err := api.svc.Query(reqCtx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying homework")
	}
	return ctx.JSON(http.StatusOK, hws)
}

func (api *homeworkApi) upcoming(ctx echo.Context) error {
	params := newQueryParams(ctx)
	days := params.Int("days")
	if days < 0 {
		params.invalid("days", "days cannot be negative")
	}
	if err := params.Err(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	hws, err := api.svc.Upcoming(ctx.Request().Context(), ctxUsr.ID, time.Duration(days)*24*time.Hour)
	if err != nil {
		return errors.Wrap(err, "listing upcoming homework")
	}
	return ctx.JSON(http.StatusOK, hws)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	hw, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting homework")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if readsOwnDataOnly(ctxUsr) {
		visible, err := api.svc.VisibleTo(reqCtx, hw, ctxUsr.ID)
		if err != nil {
			return errors.Wrap(err, "checking homework audience")
		}
		if !visible {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	hw, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting homework")
	}

	var data homework.UpdateHomework
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err = data.Validate(hw, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	hw, err = api.svc.Update(reqCtx, hw.ID, data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return ctx.NoContent(http.StatusNoContent)
}
