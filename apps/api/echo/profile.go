package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
)

type profileApi struct {
	svc *profile.Service
}

func registerProfileAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *profile.Service, authz *access.Authorizer) {
	api := profileApi{svc: svc}

	g.GET("/permissions", api.queryPermissions, append(authed, areaMiddleware(access.AreaAdminDashboard))...)

	pg := g.Group("/profiles", append(authed, adminMiddleware(authz, permission.ManageProfiles)...)...)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
}

func (api *profileApi) queryPermissions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, permission.List())
}

func (api *profileApi) query(ctx echo.Context) error {
	filter := &profile.QueryFilter{
		Search: ctx.QueryParam("search"),
		Sector: ctx.QueryParam("sector"),
	}
	profiles, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying access profiles")
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *profileApi) create(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating access profile")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding access profile by ID")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) update(ctx echo.Context) error {
	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	p, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating access profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) destroy(ctx echo.Context) error {
	n, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting access profile")
	}
	return ctx.JSON(http.StatusOK, DeleteProfileResponse{UnboundUsers: n})
}

type DeleteProfileResponse struct {
	UnboundUsers int `json:"unbound_users"`
}
