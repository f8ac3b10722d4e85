package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/user"
)

type reportApi struct {
	users     *user.Service
	documents *document.Service
}

func registerReportAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	users *user.Service,
	documents *document.Service,
	authz *access.Authorizer,
) {
	api := reportApi{users: users, documents: documents}

	rg := g.Group("/reports", append(authed,
		areaMiddleware(access.AreaAdminReports),
		permissionMiddleware(authz, permission.ViewReports),
	)...)
	rg.GET("/summary", api.summary)
}

func (api *reportApi) summary(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	byRole, err := api.users.CountByRole(reqCtx)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	byStatus, err := api.documents.CountByStatus(reqCtx)
	if err != nil {
		return errors.Wrap(err, "counting document requests")
	}
	return ctx.JSON(http.StatusOK, SummaryResponse{UsersByRole: byRole, RequestsByStatus: byStatus})
}

type SummaryResponse struct {
	UsersByRole      map[string]int          `json:"users_by_role"`
	RequestsByStatus map[document.Status]int `json:"requests_by_status"`
}
