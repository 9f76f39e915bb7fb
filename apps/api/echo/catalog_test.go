package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/user"
	"github.com/trezcool/sose/tests"
)

func TestCatalogApi_query(t *testing.T) {
	app := setup(t)
	stu := testutil.CreateUser(t, app.usrRepo, "Amani", "amani@school.test", user.RoleStudent)
	token := getToken(t, app.conf, stu)

	dune := testutil.CreateBook(t, app.bookRepo, "Dune", "Frank Herbert", "Fiction", 2)
	atlas := testutil.CreateBook(t, app.bookRepo, "Atlas", "Herbert George", "Geography", 1)
	emma := testutil.CreateBookFrom(t, app.bookRepo, catalog.Book{
		Title: "Emma", Author: "Jane Austen", Subject: "Fiction", TotalCopies: 1, AvailableCopies: 1,
		IsDigital: true, DigitalURL: "https://library.test/emma",
	})
	get := func(b catalog.Book) catalog.Book {
		book, err := app.books.Get(context.Background(), b.ID)
		require.NoError(t, err)
		return book
	}
	dune, atlas, emma = get(dune), get(atlas), get(emma)

	tests := []httpTest{
		{name: "all", path: "/v1/library/books", wantData: marchallList(t, atlas, dune, emma)},
		{name: "search", path: "/v1/library/books?search=herbert", wantData: marchallList(t, atlas, dune)},
		{name: "subject", path: "/v1/library/books?subject=Fiction", wantData: marchallList(t, dune, emma)},
		{name: "physical", path: "/v1/library/books?is_digital=false", wantData: marchallList(t, atlas, dune)},
		{name: "digital", path: "/v1/library/books?is_digital=1", wantData: marchallList(t, emma)},
		{name: "ordering", path: "/v1/library/books?ordering=-available_copies,title", wantData: marchallList(t, dune, atlas, emma)},
		{name: "unknown ordering", path: "/v1/library/books?ordering=-isbn", wantData: marchallList(t, atlas, dune, emma)},
		{name: "no match", path: "/v1/library/books?search=tolkien", wantData: marchallList(t)},
		{
			name:     "bad is_digital",
			path:     "/v1/library/books?is_digital=lol",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"is_digital": "must be a boolean"}`),
		},
		{name: "subjects", path: "/v1/library/books/subjects", wantData: []byte(`["Fiction", "Geography"]`)},
		{name: "retrieve", path: "/v1/library/books/" + dune.ID, wantData: marchallObj(t, dune)},
		{
			name:     "retrieve unknown",
			path:     "/v1/library/books/lol",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "book not found"}),
		},
		{name: "stats, not staff", path: "/v1/library/books/stats", wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			tt.token = token
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestCatalogApi_stats(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	testutil.CreateBook(t, app.bookRepo, "Dune", "Frank Herbert", "Fiction", 2)
	testutil.CreateBookFrom(t, app.bookRepo, catalog.Book{Title: "Atlas", Author: "Herbert George", TotalCopies: 3, AvailableCopies: 1})

	tt := httpTest{method: http.MethodGet, path: "/v1/library/books/stats", token: getToken(t, app.conf, lib), wantCode: http.StatusOK}
	tt.wantData = marchallObj(t, catalog.Stats{Titles: 2, TotalCopies: 5, AvailableCopies: 3, OnLoan: 2})
	checkCodeAndData(t, tt, app.do(tt))
}

func TestCatalogApi_create(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	stu := testutil.CreateUser(t, app.usrRepo, "Amani", "amani@school.test", user.RoleStudent)
	libToken, stuToken := getToken(t, app.conf, lib), getToken(t, app.conf, stu)

	tests := []httpTest{
		{
			name:     "student",
			body:     []byte(`{"title": "Dune", "author": "Frank Herbert", "total_copies": 2}`),
			token:    stuToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "no title",
			body:     []byte(`{"author": "Frank Herbert", "total_copies": 2}`),
			token:    libToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name:     "bad json",
			body:     []byte(`{"title": `),
			token:    libToken,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/library/books"
			rec := app.do(tt)
			if tt.wantData == nil {
				assert.Equal(t, tt.wantCode, rec.Code)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("librarian", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost,
			path:   "/v1/library/books",
			body:   []byte(`{"title": "  Dune ", "author": "Frank Herbert", "subject": "Fiction", "isbn": "978-0-441-17271-9", "total_copies": 2}`),
			token:  libToken,
		}
		rec := app.do(tt)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var book catalog.Book
		unmarshal(t, rec, &book)
		assert.NotEmpty(t, book.ID)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, 2, book.TotalCopies)
		assert.Equal(t, 2, book.AvailableCopies)
		assert.False(t, book.IsDigital)
	})
}

func TestCatalogApi_update(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	token := getToken(t, app.conf, lib)
	book := testutil.CreateBookFrom(t, app.bookRepo, catalog.Book{Title: "Dune", Author: "Frank Herbert", TotalCopies: 3, AvailableCopies: 1})

	tests := []struct {
		httpTest
		wantTotal, wantAvailable int
	}{
		{
			httpTest:      httpTest{name: "more copies", body: []byte(`{"total_copies": 5}`), wantCode: http.StatusOK},
			wantTotal:     5,
			wantAvailable: 3,
		},
		{
			httpTest: httpTest{
				name:     "less copies than on loan",
				body:     []byte(`{"total_copies": 1}`),
				wantCode: http.StatusConflict,
				wantData: marchallObj(t, httpErr{Error: catalog.ErrCopiesOnLoan.Error()}),
			},
		},
		{
			httpTest: httpTest{
				name:     "digital while on loan",
				body:     []byte(`{"is_digital": true, "digital_url": "https://library.test/dune"}`),
				wantCode: http.StatusConflict,
				wantData: marchallObj(t, httpErr{Error: catalog.ErrDigitalOnLoan.Error()}),
			},
		},
		{
			httpTest: httpTest{
				name:     "unknown",
				path:     "/v1/library/books/6fd2c4c5-4f47-4d8e-bb0e-0bd2ae7d3b11",
				body:     []byte(`{"total_copies": 5}`),
				wantCode: http.StatusNotFound,
				wantData: marchallObj(t, httpErr{Error: "book not found"}),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			tt.token = token
			if tt.path == "" {
				tt.path = "/v1/library/books/" + book.ID
			}
			rec := app.do(tt.httpTest)
			if tt.wantData != nil {
				checkCodeAndData(t, tt.httpTest, rec)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var got catalog.Book
			unmarshal(t, rec, &got)
			assert.Equal(t, tt.wantTotal, got.TotalCopies)
			assert.Equal(t, tt.wantAvailable, got.AvailableCopies)
		})
	}
}

func TestCatalogApi_destroy(t *testing.T) {
	app := setup(t)
	lib := testutil.CreateUser(t, app.usrRepo, "Mrs Wanjiru", "wanjiru@school.test", user.RoleLibrarian)
	token := getToken(t, app.conf, lib)
	book := testutil.CreateBook(t, app.bookRepo, "Dune", "Frank Herbert", "Fiction", 1)

	tests := []httpTest{
		{name: "existing", wantCode: http.StatusNoContent},
		{name: "already deleted", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "book not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodDelete
			tt.path = "/v1/library/books/" + book.ID
			tt.token = token
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}
