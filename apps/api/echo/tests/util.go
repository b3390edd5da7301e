package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/ricardious/semestrix/apps/api/echo"
	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/history"
	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/student"
	"github.com/ricardious/semestrix/core/user"
	emailsvc "github.com/ricardious/semestrix/services/email"
	inmemdb "github.com/ricardious/semestrix/storage/database/inmem"
	testutil "github.com/ricardious/semestrix/tests"
)

var (
	conf     *core.Config
	usrRepo  user.Repository
	progRepo program.Repository
	histRepo history.Repository
	profRepo student.Repository
	mailSvc  *emailsvc.ConsoleServiceMock

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup(): %v", err)
	}
	conf = testutil.NewConfig()
	usrRepo = inmemdb.NewUserRepository(db)
	progRepo = inmemdb.NewProgramRepository(db)
	histRepo = inmemdb.NewHistoryRepository(db)
	profRepo = inmemdb.NewProfileRepository(db)

	// set up services
	mailSvc = emailsvc.NewConsoleServiceMock(conf)
	core.ParseEmailTemplates(conf, testLogger{t})
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	progSvc := program.NewService(progRepo)
	histSvc := history.NewService(histRepo, progRepo)
	studSvc := student.NewService(profRepo, progRepo, histRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     testLogger{t},
			UserSvc:    usrSvc,
			ProgramSvc: progSvc,
			HistorySvc: histSvc,
			StudentSvc: studSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testLogger struct {
	t *testing.T
}

var _ core.Logger = (*testLogger)(nil)

func (l testLogger) Enable(bool) {}
func (l testLogger) Debug(msg string, args ...interface{}) {
	l.t.Logf("DEBUG: %s %v", msg, args)
}
func (l testLogger) Info(msg string, args ...interface{}) { l.t.Logf("INFO: %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{}) { l.t.Logf("WARN: %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) {
	l.t.Logf("ERROR: %s %v", msg, args)
}
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.t.Fatalf("FATAL: %s %v", msg, args)
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
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
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
