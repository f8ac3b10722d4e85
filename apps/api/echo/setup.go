package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/setup"
)

type setupApi struct {
	svc *setup.Service
}

func registerSetupAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *setup.Service) {
	api := setupApi{svc: svc}

	sg := g.Group("/setup")
	sg.GET("/status", api.status)
	sg.POST("/complete", api.complete, append(authed, areaMiddleware(access.AreaAdminDashboard))...)
}

func (api *setupApi) status(ctx echo.Context) error {
	installed, err := api.svc.IsInstalled(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking installation")
	}
	return ctx.JSON(http.StatusOK, SetupStatusResponse{Installed: installed})
}

func (api *setupApi) complete(ctx echo.Context) error {
	if err := api.svc.MarkInstalled(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "completing installation")
	}
	return ctx.JSON(http.StatusOK, SetupStatusResponse{Installed: true})
}

type SetupStatusResponse struct {
	Installed bool `json:"installed"`
}
