package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/apps/api/echo"
	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/setup"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/services/email"
	"github.com/trezcool/educonnect/services/events"
	"github.com/trezcool/educonnect/storage/database/inmem"
	"github.com/trezcool/educonnect/storage/kv"
	"github.com/trezcool/educonnect/tests"
)

const strongPwd = "Boletim#2024"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type generatorMock struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
	// subjects of the last call
	subjects []advice.Subject
}

func (g *generatorMock) GenerateAdvice(_ context.Context, _ string, subjects []advice.Subject) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.subjects = subjects
	return g.answer, g.err
}

type env struct {
	app      echoapi.Server
	conf     *core.Config
	profRepo profile.Repository
	usrRepo  user.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	logger   *testutil.Logger
	gen      *generatorMock
	grades   *grade.Service

	director profile.Profile // every permission
	admin    user.User       // bound to director
	student  user.User       // no profile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	require.NoError(t, user.LoadCommonPasswords())

	conf := testutil.Config()
	logger := testutil.NewLogger()
	db := inmemdb.NewDB()
	v := core.NewValidator()

	profRepo := inmemdb.NewProfileRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.EmailTemplates(t), logger)
	profSvc := profile.NewService(profRepo, v, profile.PolicyReject)
	usrSvc := user.NewService(usrRepo, profSvc, v, mailSvc, conf)
	gen := &generatorMock{answer: "Muito bem, continue assim!"}
	gradeSvc := grade.NewService(inmemdb.NewGradeRepository(db), v)

	e := &env{
		conf:     conf,
		profRepo: profRepo,
		usrRepo:  usrRepo,
		mailSvc:  mailSvc,
		logger:   logger,
		gen:      gen,
		grades:   gradeSvc,
	}
	e.app = echoapi.NewServer("", nil, &echoapi.Deps{
		Conf:        conf,
		Logger:      logger,
		Validator:   v,
		UserSvc:     usrSvc,
		ProfileSvc:  profSvc,
		DocumentSvc: document.NewService(inmemdb.NewDocumentRepository(db), usrSvc, v, mailSvc, eventsvc.NopPublisher{}, logger),
		AdviceSvc:   advice.NewService(gen, conf.Advice, logger),
		NoticeSvc:   notice.NewService(inmemdb.NewNoticeRepository(db), v),
		GradeSvc:    gradeSvc,
		SetupSvc:    setup.NewService(kvstore.NewMemoryStore()),
		Authorizer:  access.NewAuthorizer(profSvc),
	})

	e.director = testutil.CreateProfile(t, profRepo, "Direção", "Administrativo", permission.All()...)
	e.admin = testutil.CreateUser(t, usrRepo, "Ana Souza", "ana@escola.br", strongPwd, user.RoleAdmin, e.director.ID, true)
	e.student = testutil.CreateUser(t, usrRepo, "Bruno Lima", "bruno@escola.br", strongPwd, user.RoleStudent, "", true)
	return e
}

func (e *env) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, e.conf), e.conf.SecretKey)
	require.NoError(t, err)
	return token
}

func (e *env) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
