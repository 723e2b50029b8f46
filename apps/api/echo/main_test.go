package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/assets"
	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/attendance"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/grade"
	"github.com/classbook/classbook/core/homework"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
	cachesvc "github.com/classbook/classbook/services/cache"
	emailsvc "github.com/classbook/classbook/services/email"
	sqlxrepos "github.com/classbook/classbook/storage/database/sqlx"
	"github.com/classbook/classbook/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     *Server
	conf    *core.Config
	mailer  *emailsvc.ConsoleServiceMock
	usrRepo user.Repository
	clsRepo class.Repository
	subRepo subject.Repository
	schRepo schedule.Repository
	hwRepo  homework.Repository
	grdRepo grade.Repository
	attRepo attendance.Repository
}

// setup wires a Server on top of a fresh in-memory database.
func setup(t *testing.T) *testEnv {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true
	logger := core.NewNopLogger()
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger)
	user.LoadCommonPasswords(assets.FS, assets.CommonPasswordsPath, logger)

	env := &testEnv{
		conf:    conf,
		mailer:  emailsvc.NewConsoleServiceMock(conf),
		usrRepo: sqlxrepos.NewUserRepository(db),
		clsRepo: sqlxrepos.NewClassRepository(db),
		subRepo: sqlxrepos.NewSubjectRepository(db),
		schRepo: sqlxrepos.NewScheduleRepository(db),
		hwRepo:  sqlxrepos.NewHomeworkRepository(db),
		grdRepo: sqlxrepos.NewGradeRepository(db),
		attRepo: sqlxrepos.NewAttendanceRepository(db),
	}

	usrSvc := user.NewService(db, env.usrRepo, env.mailer, conf)
	clsSvc := class.NewService(db, env.clsRepo, usrSvc)
	subSvc := subject.NewService(env.subRepo)
	schSvc := schedule.NewService(db, env.schRepo, cachesvc.NewMemoryCache(), clsSvc, subSvc, usrSvc, conf, logger)
	hwSvc := homework.NewService(env.hwRepo, clsSvc, subSvc, schSvc, env.mailer, conf, logger)
	grdSvc := grade.NewService(env.grdRepo, clsSvc, schSvc, hwSvc, conf)
	attSvc := attendance.NewService(db, env.attRepo, clsSvc, schSvc)

	env.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		ClassSvc:      clsSvc,
		SubjectSvc:    subSvc,
		ScheduleSvc:   schSvc,
		HomeworkSvc:   hwSvc,
		GradeSvc:      grdSvc,
		AttendanceSvc: attSvc,
		Validate:      validate,
		Translator:    translator,
	})
	return env
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	token, err := env.app.auth.generateToken(env.app.auth.claims(usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (env *testEnv) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.app.ServeHTTP(rec, req)
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
	wantIDs  []string
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

// responseIDs returns the "id" of every object of a JSON list, in order.
func responseIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	var objs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &objs), rec.Body.String())
	ids := make([]string, 0, len(objs))
	for _, obj := range objs {
		id, _ := obj["id"].(string)
		ids = append(ids, id)
	}
	return ids
}

func responseObj(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj), rec.Body.String())
	return obj
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if !assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String()) {
		return
	}
	if tt.wantIDs != nil {
		assert.Equal(t, tt.wantIDs, responseIDs(t, rec))
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.serve(tt))
		})
	}
}
