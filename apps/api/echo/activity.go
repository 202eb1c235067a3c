package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/user"
)

const imageField = "image"

type activityApi struct {
	svc      *activity.Service
	validate *validator.Validate
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := activityApi{
		svc:      deps.ActivitySvc,
		validate: deps.Validate,
	}

	vg := g.Group("/virtual-cards", jwt, roleMiddleware(user.RoleTeacher))
	vg.GET("", api.list)
	// the image size limit itself is enforced by activity.Image.Validate
	vg.POST("", api.create, middleware.BodyLimit("10M"))
	vg.POST("/reorder", api.reorder)
}

func (api *activityApi) list(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	acts, err := api.svc.List(ctx.Request().Context(), principal.ID)
	if err != nil {
		return errors.Wrap(err, "listing activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (api *activityApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data activity.NewActivity
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	var img activity.Image
	fh, err := ctx.FormFile(imageField)
	switch err {
	case nil:
		f, oErr := fh.Open()
		if oErr != nil {
			return errors.Wrap(oErr, "opening image")
		}
		defer f.Close()
		img = activity.Image{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		}
	case http.ErrMissingFile, http.ErrNotMultipart:
		// reported by activity.Image.Validate
	default:
		return errors.Wrap(err, "reading image")
	}

	act, err := api.svc.Create(ctx.Request().Context(), activity.Creator{ID: principal.ID, Name: principal.Name}, data, img)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (api *activityApi) reorder(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data ReorderRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}
	if err = api.svc.Reorder(ctx.Request().Context(), principal.ID, data.IDs); err != nil {
		return errors.Wrap(err, "reordering library")
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}

// ReorderRequest carries the full new order of a teacher's library.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}
