package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core/performance"
	"github.com/rotinas-pei/backend/core/user"
)

type recordApi struct {
	svc      *performance.Service
	validate *validator.Validate
}

func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := recordApi{
		svc:      deps.RecordSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/registros", jwt, roleMiddleware(user.RoleStudent))
	rg.POST("", api.create)
	rg.GET("", api.list)
}

func (api *recordApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data performance.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Create(ctx.Request().Context(), principal.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) list(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.List(ctx.Request().Context(), principal.ID)
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	return ctx.JSON(http.StatusOK, recs)
}
