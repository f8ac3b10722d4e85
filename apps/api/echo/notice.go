package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/permission"
)

type noticeApi struct {
	svc *notice.Service
}

func registerNoticeAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *notice.Service, authz *access.Authorizer) {
	api := noticeApi{svc: svc}

	ng := g.Group("/notices", authed...)
	ng.GET("", api.query, areaOrPermissionMiddleware(authz, access.AreaNotices, permission.PublishNotices))
	ng.POST("", api.publish, adminMiddleware(authz, permission.PublishNotices)...)
	ng.DELETE("/:id", api.destroy, adminMiddleware(authz, permission.PublishNotices)...)
}

func (api *noticeApi) query(ctx echo.Context) error {
	filter := &notice.QueryFilter{Type: notice.Type(ctx.QueryParam("type"))}
	notices, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notices")
	}
	if notices == nil {
		notices = []notice.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *noticeApi) publish(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data notice.NewNotice
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	n, err := api.svc.Publish(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "publishing notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noticeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return ctx.NoContent(http.StatusNoContent)
}
