package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/permission"
)

var errRegistrationRequired = core.NewValidationError(
	errors.New("registration required"),
	core.FieldError{Field: "registration", Error: "this field is required"},
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *grade.Service, authz *access.Authorizer) {
	api := gradeApi{svc: svc}

	gg := g.Group("/grades", authed...)
	gg.GET("", api.query, areaOrPermissionMiddleware(authz, access.AreaGrades, permission.ViewGrades))
	gg.PUT("", api.save, adminMiddleware(authz, permission.EditGrades)...)
	gg.DELETE("/:id", api.destroy, adminMiddleware(authz, permission.EditGrades)...)
}

// query lists the grades of the context student (or their child, for parents).
// Staff pick the student with the registration query param.
func (api *gradeApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	registration := usr.Registration
	if !access.CanEnter(usr.Role, access.AreaGrades) {
		if registration = core.CleanString(ctx.QueryParam("registration")); registration == "" {
			return errRegistrationRequired
		}
	}

	records, err := api.svc.ByRegistration(ctx.Request().Context(), registration)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if records == nil {
		records = []grade.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradeApi) save(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data grade.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	r, err := api.svc.Save(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "saving grades")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grades")
	}
	return ctx.NoContent(http.StatusNoContent)
}
