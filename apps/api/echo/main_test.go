package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/sose/apps/api/echo"
	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
	"github.com/trezcool/sose/services/email"
	"github.com/trezcool/sose/storage/database/sqlxrepos"
	"github.com/trezcool/sose/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errUnauthorized = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*Server

	conf     *core.Config
	bookRepo catalog.Repository
	usrRepo  user.Repository
	books    *catalog.Service
	issues   *circulation.Service
	now      time.Time
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	db := testutil.PrepareDB(t)
	validate, translator := testutil.NewValidator()
	logger := testutil.NewLogger()
	templates := testutil.NewEmailTemplates(t)

	app := &testApp{
		conf:     conf,
		bookRepo: sqlxrepos.NewBookRepository(db),
		usrRepo:  sqlxrepos.NewUserRepository(db),
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	app.books = catalog.NewService(app.bookRepo, validate, translator, logger)
	app.issues = circulation.NewService(
		db,
		sqlxrepos.NewIssueRepository(db),
		app.books,
		user.NewService(app.usrRepo, validate, translator),
		emailsvc.NewConsoleServiceMock(conf, templates, logger),
		templates,
		logger,
		validate,
		translator,
		circulation.NewPolicy(conf.Library),
	)
	app.issues.SetClock(func() time.Time { return app.now })

	app.Server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		CatalogSvc:     app.books,
		CirculationSvc: app.issues,
		DisableReqLogs: true,
	})
	return app
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
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

func TestHome(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to SOSE Library API!", rec.Body.String())
}

func TestAuth(t *testing.T) {
	app := setup(t)
	stranger := user.User{ID: "x-1", Name: "Stranger", Role: "janitor"}

	expired := GetUserClaims(app.conf, user.User{ID: "lib-1", Role: user.RoleLibrarian})
	expired.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredToken, err := GenerateToken(app.conf, expired)
	assert.NoError(t, err)

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/library/books", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "expired token", method: http.MethodGet, path: "/v1/library/books", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "unknown role", method: http.MethodGet, path: "/v1/library/books", token: getToken(t, app.conf, stranger), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthorized)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}
