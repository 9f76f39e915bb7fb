package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/user"
	appfs "github.com/trezcool/sose/fs"
	"github.com/trezcool/sose/services/logger"
	"github.com/trezcool/sose/storage/database"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		AppName:          "SOSE Library",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "SOSE Library <noreply@localhost>",
		Server: core.ServerConfig{
			Host:               ":8000",
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.SQLite},
		Library: core.LibraryConfig{
			LoanPeriod:       14 * 24 * time.Hour,
			FineRatePerDay:   2,
			ReminderInterval: 24 * time.Hour,
		},
	}
}

// PrepareDB creates a migrated sqlite database, removed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewLogger() *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
}

// NewValidator returns a validator with every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return validate, translator
}

func NewEmailTemplates(t *testing.T) *core.EmailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(appfs.EmailTemplates(), NewConfig())
	if err != nil {
		t.Fatalf("NewEmailTemplates() failed: %v", err)
	}
	return tmpls
}

func CreateUser(t *testing.T, repo user.Repository, name, email, role string, isActive ...bool) user.User {
	t.Helper()
	active := true
	if len(isActive) > 0 {
		active = isActive[0]
	}
	now := core.Now()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateBook stores a physical book with all its copies available.
func CreateBook(t *testing.T, repo catalog.Repository, title, author, subject string, copies int) catalog.Book {
	t.Helper()
	return CreateBookFrom(t, repo, catalog.Book{
		Title:           title,
		Author:          author,
		Subject:         subject,
		TotalCopies:     copies,
		AvailableCopies: copies,
	})
}

func CreateBookFrom(t *testing.T, repo catalog.Repository, book catalog.Book) catalog.Book {
	t.Helper()
	now := core.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	book, err := repo.CreateBook(context.Background(), book)
	if err != nil {
		t.Fatalf("CreateBook() failed: %v", err)
	}
	return book
}
