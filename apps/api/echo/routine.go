package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

var nowFunc = time.Now // mockable

type routineApi struct {
	svc      *routine.Service
	validate *validator.Validate
}

func registerRoutineAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := routineApi{
		svc:      deps.RoutineSvc,
		validate: deps.Validate,
	}

	teacher := roleMiddleware(user.RoleTeacher)

	rg := g.Group("/routines", jwt)
	rg.GET("", api.list, roleMiddleware(user.RoleTeacher, user.RoleStudent))
	rg.POST("", api.create, teacher)
	rg.POST("/reorder-activities", api.reorderActivities, teacher)
}

func (api *routineApi) list(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var filter routine.QueryFilter
	if raw := core.CleanString(ctx.QueryParam("date")); raw != "" {
		if filter.Date, err = core.ParseDate(raw); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be of form YYYY-MM-DD"})
		}
	}

	studentID := core.CleanString(ctx.QueryParam("studentId"))
	student, routines, err := api.svc.List(ctx.Request().Context(), studentID, principal, filter)
	if err != nil {
		return errors.Wrap(err, "listing routines")
	}
	return ctx.JSON(http.StatusOK, RoutinesResponse{Student: student, Routines: routines})
}

func (api *routineApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data routine.NewRoutine
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoutine")
	}
	if err = data.Validate(api.validate, core.DateOf(nowFunc())); err != nil {
		return err
	}

	student, r, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating routine")
	}
	return ctx.JSON(http.StatusCreated, RoutineResponse{Student: student, Routine: r})
}

func (api *routineApi) reorderActivities(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data routine.ReorderActivities
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderActivities")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ReorderActivities(ctx.Request().Context(), principal, data); err != nil {
		return errors.Wrap(err, "reordering routine activities")
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}

type (
	RoutinesResponse struct {
		Student  routine.Student   `json:"student"`
		Routines []routine.Routine `json:"routines"`
	}

	RoutineResponse struct {
		Student routine.Student `json:"student"`
		Routine routine.Routine `json:"routine"`
	}
)
