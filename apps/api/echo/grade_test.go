package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/apps/api/echo"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/tests"
)

// withRegistration stores usr with the given school registration number.
func (e *env) withRegistration(t *testing.T, usr user.User, registration string) user.User {
	t.Helper()
	usr.Registration = registration
	usr, err := e.usrRepo.UpdateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func Test_gradeApi(t *testing.T) {
	e := newEnv(t)
	adminToken := e.token(t, e.admin)
	student := e.withRegistration(t, e.student, "2024-0001")
	parent := testutil.CreateUser(t, e.usrRepo, "Carla Lima", "carla@escola.br", "", user.RoleParent, "", true)
	parent = e.withRegistration(t, parent, "2024-0001")
	other := testutil.CreateUser(t, e.usrRepo, "Davi Reis", "davi@escola.br", "", user.RoleStudent, "", true)
	reader := testutil.CreateProfile(t, e.profRepo, "Coordenação", "Pedagógico", permission.ViewGrades)
	coordinator := testutil.CreateUser(t, e.usrRepo, "Eli", "eli@escola.br", "", user.RoleAdmin, reader.ID, true)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	body := []byte(`{"registration": "2024-0001", "subject": "Matemática", "teacher": "Prof. Alberto Rosa", ` +
		`"grades": {"bimester1": 8.5, "bimester2": "7.0"}, "attendance": 95}`)
	tests := []httpTest{
		{name: "save: student", method: http.MethodPut, token: e.token(t, student), body: body, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "save: edit_grades required", method: http.MethodPut, token: e.token(t, coordinator), body: body, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "save: grade out of range", method: http.MethodPut, token: adminToken,
			body:     []byte(`{"registration": "2024-0001", "subject": "Matemática", "grades": {"bimester1": 11}, "attendance": 95}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grades.bimester1": "grade must be between 0 and 10"}),
		},
		{name: "save", method: http.MethodPut, token: adminToken, body: body, wantCode: http.StatusOK},
		{
			name: "list: staff pick the student", method: http.MethodGet, token: e.token(t, coordinator),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"registration": "this field is required"}),
		},
		{name: "list: student without registration", method: http.MethodGet, token: e.token(t, other), wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		tt.path = "/v1/grades"
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}

	// the student, their parent and staff with view_grades see the same record
	for _, tt := range []struct {
		token string
		path  string
	}{
		{e.token(t, student), "/v1/grades?registration=2024-0002"}, // query ignored for students
		{e.token(t, parent), "/v1/grades"},
		{e.token(t, coordinator), "/v1/grades?registration=2024-0001"},
	} {
		rec := e.serve(httpTest{method: http.MethodGet, path: tt.path, token: tt.token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var records []grade.Record
		decode(t, rec, &records)
		if assert.Len(t, records, 1) {
			assert.Equal(t, "Matemática", records[0].Subject)
			assert.Equal(t, "7.75", records[0].Grades.Average().Decimal.String())
			assert.Equal(t, e.admin.ID, records[0].UpdatedBy)
		}
	}

	records, err := e.grades.ByRegistration(context.Background(), "2024-0001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := e.serve(httpTest{method: http.MethodDelete, path: "/v1/grades/" + records[0].ID, token: e.token(t, coordinator)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.serve(httpTest{method: http.MethodDelete, path: "/v1/grades/" + records[0].ID, token: adminToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.serve(httpTest{method: http.MethodDelete, path: "/v1/grades/" + records[0].ID, token: adminToken})
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "grade record not found"})}, rec)
}

func Test_adviceApi_storedGrades(t *testing.T) {
	e := newEnv(t)
	student := e.withRegistration(t, e.student, "2024-0001")
	_, err := e.grades.Save(context.Background(), grade.NewRecord{
		Registration: "2024-0001", Subject: "Português", Teacher: "Profª. Maria Souza",
		Grades:     advice.Grades{Bimester1: decimal.NewNullDecimal(decimal.NewFromInt(9))},
		Attendance: decimal.NewFromInt(100),
	}, e.admin)
	require.NoError(t, err)

	tt := httpTest{
		method: http.MethodPost, path: "/v1/advice", token: e.token(t, student), body: []byte(`{}`),
		wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.AdviceResponse{Advice: "Muito bem, continue assim!"}),
	}
	checkCodeAndData(t, tt, e.serve(tt))
	if assert.Len(t, e.gen.subjects, 1) {
		assert.Equal(t, "Português", e.gen.subjects[0].Name)
		assert.Equal(t, "Profª. Maria Souza", e.gen.subjects[0].Teacher)
	}
}
