package tests

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/rotinas-pei/backend/apps/api/echo"
	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
	emailsvc "github.com/rotinas-pei/backend/services/email"
	imagesvc "github.com/rotinas-pei/backend/services/imagestore"
	logsvc "github.com/rotinas-pei/backend/services/logger"
	inmemdb "github.com/rotinas-pei/backend/storage/database/inmem"
	testutil "github.com/rotinas-pei/backend/tests"
)

var errAccessNotAuthorized = httpErr{Error: "access not authorized"}

type testEnv struct {
	app     *Server
	conf    *core.Config
	usrRepo user.Repository
	actRepo activity.Repository
	rtnRepo routine.Repository
	recRepo performance.Repository
	actSvc  *activity.Service
	images  *imagesvc.MemoryStore
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testutil.Config()

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)

	// set up DB & repos
	db := inmemdb.Open()
	env := testEnv{
		conf:    conf,
		usrRepo: inmemdb.NewUserRepository(db),
		actRepo: inmemdb.NewActivityRepository(db),
		rtnRepo: inmemdb.NewRoutineRepository(db),
		recRepo: inmemdb.NewPerformanceRepository(db),
		images:  imagesvc.NewMemoryStore(conf.Storage.PublicBaseURL),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(env.usrRepo, mailSvc, conf)
	env.actSvc = activity.NewService(env.actRepo, env.images, conf)
	rtnSvc := routine.NewService(env.rtnRepo, usrSvc, env.actSvc)
	recSvc := performance.NewService(env.recRepo, env.actRepo, nil, logger)

	// set up server
	env.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		ActivitySvc:    env.actSvc,
		RoutineSvc:     rtnSvc,
		RecordSvc:      recSvc,
	})
	return env
}

// expand returns acts as served by the API.
func (env testEnv) expand(acts ...activity.Activity) []activity.Activity {
	out := append([]activity.Activity(nil), acts...)
	env.actSvc.ExpandImageURLs(out)
	return out
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
	extra    interface{}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

type formFile struct {
	field, name string
	content     []byte
}

func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		_, _ = part.Write(f.content)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
