package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/permission"
)

type documentApi struct {
	svc   *document.Service
	authz *access.Authorizer
}

func registerDocumentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *document.Service, authz *access.Authorizer) {
	api := documentApi{svc: svc, authz: authz}

	dg := g.Group("/documents", authed...)
	dg.GET("", api.query)
	dg.POST("", api.create, areaMiddleware(access.AreaRequests))
	dg.POST("/:id/transition", api.transition, adminMiddleware(authz, permission.ApproveDocuments)...)
}

// query lists the requests of the context user, or every request for document approvers.
func (api *documentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	filter := &document.QueryFilter{
		Status:      document.Status(ctx.QueryParam("status")),
		RequesterID: ctx.QueryParam("requester_id"),
	}
	approver, err := api.authz.Authorize(reqCtx, usr, permission.ApproveDocuments)
	if err != nil {
		return errors.Wrap(err, "authorizing")
	}
	if !approver {
		filter.RequesterID = usr.ID
	}

	reqs, err := api.svc.Query(reqCtx, filter)
	if err != nil {
		return errors.Wrap(err, "querying document requests")
	}
	if reqs == nil {
		reqs = []document.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *documentApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data document.NewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	r, err := api.svc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating document request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *documentApi) transition(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data document.Transition
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Transition")
	}
	r, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "transitioning document request")
	}
	return ctx.JSON(http.StatusOK, r)
}
