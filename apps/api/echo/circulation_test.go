package echoapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
	"github.com/trezcool/sose/tests"
)

func TestCirculationApi_lifecycle(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	stu := testutil.CreateUser(t, app.usrRepo, "Amani", "amani@school.test", user.RoleStudent)
	libToken, stuToken := getToken(t, app.conf, lib), getToken(t, app.conf, stu)
	book := testutil.CreateBook(t, app.bookRepo, "Dune", "Frank Herbert", "Fiction", 1)

	// request
	tt := httpTest{method: http.MethodPost, path: "/v1/library/issues", token: stuToken, body: []byte(`{"book_id": "` + book.ID + `"}`)}
	rec := app.do(tt)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var iss circulation.Issue
	unmarshal(t, rec, &iss)
	assert.Equal(t, stu.ID, iss.StudentID)
	assert.Equal(t, circulation.StatusRequested, iss.Status)
	assert.Equal(t, "Dune", iss.BookTitle)

	t.Run("duplicate request", func(t *testing.T) {
		tt.wantCode = http.StatusConflict
		tt.wantData = marchallObj(t, httpErr{Error: "you have already requested or issued this book"})
		checkCodeAndData(t, tt, app.do(tt))
	})

	detail := "/v1/library/issues/" + iss.ID
	tests := []httpTest{
		{name: "student approves", method: http.MethodPost, path: detail + "/approve", token: stuToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "student returns", method: http.MethodPost, path: detail + "/return", token: stuToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "return a request", method: http.MethodPost, path: detail + "/return", token: libToken, wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "cannot return an issue with status requested"})},
		{name: "unknown issue", method: http.MethodPost, path: "/v1/library/issues/lol/approve", token: libToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "issue not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	// approve
	rec = app.do(httpTest{method: http.MethodPost, path: detail + "/approve", token: libToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &iss)
	assert.Equal(t, circulation.StatusIssued, iss.Status)
	assert.Equal(t, lib.ID, iss.IssuedBy)

	t.Run("no copy left", func(t *testing.T) {
		other := testutil.CreateUser(t, app.usrRepo, "Baraka", "baraka@school.test", user.RoleStudent)
		rec := app.do(httpTest{method: http.MethodPost, path: "/v1/library/issues", token: libToken, body: []byte(`{"book_id": "` + book.ID + `", "student_id": "` + other.ID + `"}`)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var second circulation.Issue
		unmarshal(t, rec, &second)
		assert.Equal(t, other.ID, second.StudentID)

		tt := httpTest{method: http.MethodPost, path: "/v1/library/issues/" + second.ID + "/approve", token: libToken, wantCode: http.StatusConflict}
		tt.wantData = marchallObj(t, httpErr{Error: "not available"})
		checkCodeAndData(t, tt, app.do(tt))
	})

	// overdue, then return 5 days late
	app.now = app.now.Add(19 * 24 * time.Hour)
	rec = app.do(httpTest{method: http.MethodGet, path: detail, token: stuToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &iss)
	assert.Equal(t, circulation.StatusIssued, iss.Status)
	assert.Equal(t, circulation.StatusOverdue, iss.DisplayStatus)

	rec = app.do(httpTest{method: http.MethodPost, path: detail + "/return", token: libToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &iss)
	assert.Equal(t, circulation.StatusReturned, iss.Status)
	assert.Equal(t, 10, iss.FineAmount)

	tt = httpTest{method: http.MethodPost, path: detail + "/return", token: libToken, wantCode: http.StatusConflict}
	tt.wantData = marchallObj(t, httpErr{Error: "already returned"})
	checkCodeAndData(t, tt, app.do(tt))
}

func TestCirculationApi_request(t *testing.T) {
	app := setup(t)
	cns := testutil.CreateUser(t, app.usrRepo, "Mr Juma", "juma@school.test", user.RoleCounselor)
	stu := testutil.CreateUser(t, app.usrRepo, "Amani", "amani@school.test", user.RoleStudent)

	tests := []httpTest{
		{
			name:     "counselor",
			body:     []byte(`{"book_id": "6fd2c4c5-4f47-4d8e-bb0e-0bd2ae7d3b11"}`),
			token:    getToken(t, app.conf, cns),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: circulation.ErrPermissionDenied.Error()}),
		},
		{
			name:     "no book",
			body:     []byte(`{}`),
			token:    getToken(t, app.conf, stu),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"book_id": "this field is required"}`),
		},
		{
			name:     "unknown book",
			body:     []byte(`{"book_id": "6fd2c4c5-4f47-4d8e-bb0e-0bd2ae7d3b11"}`),
			token:    getToken(t, app.conf, stu),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "book not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/library/issues"
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestCirculationApi_query(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	amani := testutil.CreateUser(t, app.usrRepo, "Amani", "amani@school.test", user.RoleStudent)
	baraka := testutil.CreateUser(t, app.usrRepo, "Baraka", "baraka@school.test", user.RoleStudent)
	book := testutil.CreateBook(t, app.bookRepo, "Dune", "Frank Herbert", "Fiction", 2)

	first, err := app.issues.Request(context.Background(), amani.Actor(), circulation.NewIssue{BookID: book.ID})
	require.NoError(t, err)
	app.now = app.now.Add(time.Minute)
	second, err := app.issues.Request(context.Background(), baraka.Actor(), circulation.NewIssue{BookID: book.ID})
	require.NoError(t, err)
	_, err = app.issues.Approve(context.Background(), lib.Actor(), first.ID)
	require.NoError(t, err)

	ids := func(t *testing.T, rec *httptest.ResponseRecorder) []string {
		var issues []circulation.Issue
		unmarshal(t, rec, &issues)
		res := make([]string, 0, len(issues))
		for _, iss := range issues {
			res = append(res, iss.ID)
		}
		return res
	}

	tests := []struct {
		name  string
		path  string
		token string
		want  []string
	}{
		{name: "staff", path: "/v1/library/issues", token: getToken(t, app.conf, lib), want: []string{second.ID, first.ID}},
		{name: "staff, oldest first", path: "/v1/library/issues?ordering=requested_at", token: getToken(t, app.conf, lib), want: []string{first.ID, second.ID}},
		{name: "staff, by status", path: "/v1/library/issues?status=issued,returned", token: getToken(t, app.conf, lib), want: []string{first.ID}},
		{name: "staff, by student", path: "/v1/library/issues?student_id=" + baraka.ID, token: getToken(t, app.conf, lib), want: []string{second.ID}},
		{name: "staff, overdue", path: "/v1/library/issues?overdue=true", token: getToken(t, app.conf, lib), want: []string{}},
		{name: "student", path: "/v1/library/issues", token: getToken(t, app.conf, amani), want: []string{first.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httpTest{method: http.MethodGet, path: tt.path, token: tt.token})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, ids(t, rec))
		})
	}

	t.Run("bad status", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/v1/library/issues?status=lol", token: getToken(t, app.conf, lib), wantCode: http.StatusBadRequest}
		tt.wantData = []byte(`{"status": "invalid status: \"lol\""}`)
		checkCodeAndData(t, tt, app.do(tt))
	})

	t.Run("mine", func(t *testing.T) {
		app.now = app.now.Add(15 * 24 * time.Hour)
		rec := app.do(httpTest{method: http.MethodGet, path: "/v1/library/issues/me", token: getToken(t, app.conf, amani)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Issues  []circulation.Issue `json:"issues"`
			Summary circulation.Summary `json:"summary"`
		}
		unmarshal(t, rec, &resp)
		require.Len(t, resp.Issues, 1)
		assert.Equal(t, circulation.StatusOverdue, resp.Issues[0].DisplayStatus)
		assert.Equal(t, circulation.Summary{Issued: 1, Overdue: 1}, resp.Summary)
	})

	t.Run("overdue status", func(t *testing.T) {
		for path, want := range map[string][]string{
			"/v1/library/issues?status=overdue": {first.ID},
			"/v1/library/issues?overdue=true":   {first.ID},
			"/v1/library/issues?status=issued":  {},
		} {
			rec := app.do(httpTest{method: http.MethodGet, path: path, token: getToken(t, app.conf, lib)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, want, ids(t, rec), path)
		}
	})
}
