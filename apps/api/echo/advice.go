package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/grade"
)

type adviceApi struct {
	svc       *advice.Service
	grades    *grade.Service
	validator *core.Validator
}

func registerAdviceAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *advice.Service, grades *grade.Service, v *core.Validator) {
	api := adviceApi{svc: svc, grades: grades, validator: v}
	g.POST("/advice", api.advise, append(authed, areaMiddleware(access.AreaGrades))...)
}

// advise comments on the grades of the context user's registration,
// unless the subjects to comment on are given.
func (api *adviceApi) advise(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data AdviceRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdviceRequest")
	}
	if err = data.Validate(api.validator); err != nil {
		return err
	}
	if data.StudentName == "" {
		data.StudentName = usr.Name
	}

	reqCtx := ctx.Request().Context()
	if data.Subjects == nil {
		records, err := api.grades.ByRegistration(reqCtx, usr.Registration)
		if err != nil {
			return errors.Wrap(err, "querying grades")
		}
		data.Subjects = grade.Subjects(records)
	}

	text := api.svc.Advise(reqCtx, data.StudentName, data.Subjects)
	return ctx.JSON(http.StatusOK, AdviceResponse{Advice: text})
}

type (
	AdviceRequest struct {
		StudentName string `json:"student_name"`
		// Subjects defaults to the stored grades.
		Subjects []advice.Subject `json:"subjects" validate:"dive"`
	}

	AdviceResponse struct {
		Advice string `json:"advice"`
	}
)

func (ar *AdviceRequest) Validate(v *core.Validator) error {
	ar.StudentName = core.CleanString(ar.StudentName)
	for i := range ar.Subjects {
		ar.Subjects[i].Name = core.CleanString(ar.Subjects[i].Name)
		ar.Subjects[i].Teacher = core.CleanString(ar.Subjects[i].Teacher)
	}
	return v.Struct(ar)
}
