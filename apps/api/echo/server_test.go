package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/apps/api/echo"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/tests"
)

func Test_server_home(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(httpTest{method: http.MethodGet, path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to EduConnect API!", rec.Body.String())
}

func Test_server_metrics(t *testing.T) {
	e := newEnv(t)
	e.serve(httpTest{method: http.MethodGet, path: "/v1/setup/status"})

	rec := e.serve(httpTest{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `educonnect_http_requests_total{method="GET",path="/v1/setup/status",status="200"}`)
	assert.Contains(t, body, "educonnect_http_request_duration_seconds")
}

func Test_setupApi(t *testing.T) {
	e := newEnv(t)

	tests := []httpTest{
		{
			name: "status: not installed", method: http.MethodGet, path: "/v1/setup/status",
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SetupStatusResponse{}),
		},
		{
			name: "complete: auth required", method: http.MethodPost, path: "/v1/setup/complete",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "complete: admin area required", method: http.MethodPost, path: "/v1/setup/complete", token: e.token(t, e.student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "complete", method: http.MethodPost, path: "/v1/setup/complete", token: e.token(t, e.admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SetupStatusResponse{Installed: true}),
		},
		{
			name: "complete: idempotent", method: http.MethodPost, path: "/v1/setup/complete", token: e.token(t, e.admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SetupStatusResponse{Installed: true}),
		},
		{
			name: "status: installed", method: http.MethodGet, path: "/v1/setup/status",
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SetupStatusResponse{Installed: true}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_adviceApi(t *testing.T) {
	e := newEnv(t)
	studentToken := e.token(t, e.student)
	body := []byte(`{"subjects": [{"name": "Matemática", "teacher": "Prof. Rui", ` +
		`"grades": {"bimester1": "8.5", "bimester2": 9, "bimester3": null, "bimester4": null}, "attendance": 95}]}`)

	tests := []httpTest{
		{name: "auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "student/parent area required", token: e.token(t, e.admin), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "subject name required", token: studentToken, body: []byte(`{"subjects": [{"name": " "}]}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "generated", token: studentToken, body: body,
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.AdviceResponse{Advice: "Muito bem, continue assim!"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/advice"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}

	// generator failures degrade to the fallback advice
	e.gen.err = errors.New("quota exceeded")
	tt := httpTest{
		method: http.MethodPost, path: "/v1/advice", token: studentToken,
		body:     []byte(`{"student_name": "Outro Aluno", "subjects": []}`),
		wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.AdviceResponse{Advice: advice.FallbackAdvice}),
	}
	checkCodeAndData(t, tt, e.serve(tt))
	assert.Contains(t, e.logger.Messages(), "WARN: generating advice: quota exceeded")
}

func Test_reportApi_summary(t *testing.T) {
	e := newEnv(t)
	readOnly := testutil.CreateProfile(t, e.profRepo, "Secretaria", "Administrativo", permission.ManageUsers)
	secretary := testutil.CreateUser(t, e.usrRepo, "Dora", "dora@escola.br", "", user.RoleAdmin, readOnly.ID, true)

	rec := e.serve(httpTest{
		method: http.MethodPost, path: "/v1/documents", token: e.token(t, e.student),
		body: []byte(`{"type": "Declaração"}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []httpTest{
		{
			name: "admin area required", token: e.token(t, e.student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "view_reports required", token: e.token(t, secretary),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "summary", token: e.token(t, e.admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.SummaryResponse{
				UsersByRole: map[string]int{user.RoleAdmin: 2, user.RoleStudent: 1, user.RoleParent: 0},
				RequestsByStatus: map[document.Status]int{
					document.StatusPending:    1,
					document.StatusProcessing: 0,
					document.StatusReady:      0,
					document.StatusRejected:   0,
				},
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/reports/summary"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_server_unknownRoute(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(httpTest{method: http.MethodGet, path: "/v2/nothing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Not Found"), rec.Body.String())
}
