package sqlxrepos

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
)

const booksTable = "books"

var bookColumns = []interface{}{
	"id", "title", "author", "subject", "isbn", "total_copies", "available_copies",
	"is_digital", "digital_url", "description", "created_at", "updated_at",
}

type bookRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Author          string      `db:"author"`
	Subject         null.String `db:"subject"`
	ISBN            null.String `db:"isbn"`
	TotalCopies     int         `db:"total_copies"`
	AvailableCopies int         `db:"available_copies"`
	IsDigital       bool        `db:"is_digital"`
	DigitalURL      null.String `db:"digital_url"`
	Description     null.String `db:"description"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

type bookRepository struct {
	repository
}

var _ catalog.Repository = (*bookRepository)(nil) // interface compliance check

func NewBookRepository(exec core.DBExecutor) *bookRepository {
	return &bookRepository{repository{exec: exec}}
}

func (repo bookRepository) record(book catalog.Book) goqu.Record {
	return goqu.Record{
		"title":            book.Title,
		"author":           book.Author,
		"subject":          null.NewString(book.Subject, book.Subject != ""),
		"isbn":             null.NewString(book.ISBN, book.ISBN != ""),
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"is_digital":       book.IsDigital,
		"digital_url":      null.NewString(book.DigitalURL, book.DigitalURL != ""),
		"description":      null.NewString(book.Description, book.Description != ""),
		"created_at":       book.CreatedAt.UTC(),
		"updated_at":       book.UpdatedAt.UTC(),
	}
}

func (repo bookRepository) unmarshal(row bookRow) catalog.Book {
	return catalog.Book{
		ID:              row.ID,
		Title:           row.Title,
		Author:          row.Author,
		Subject:         row.Subject.String,
		ISBN:            row.ISBN.String,
		TotalCopies:     row.TotalCopies,
		AvailableCopies: row.AvailableCopies,
		IsDigital:       row.IsDigital,
		DigitalURL:      row.DigitalURL.String,
		Description:     row.Description.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo bookRepository) CreateBook(ctx context.Context, book catalog.Book, exec ...core.DBExecutor) (catalog.Book, error) {
	exe := repo.getExec(exec)
	book.ID = uuid.New().String()

	rec := repo.record(book)
	rec["id"] = book.ID
	if _, err := execute(ctx, exe, dialect(exe).Insert(booksTable).Rows(rec).Prepared(true)); err != nil {
		return catalog.Book{}, errors.Wrap(err, "inserting book")
	}
	return repo.GetBook(ctx, book.ID, exe)
}

func (repo bookRepository) GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Book{}, catalog.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row bookRow
	ds := dialect(exe).From(booksTable).Select(bookColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := get(ctx, exe, &row, ds); err != nil {
		return catalog.Book{}, trapNoRowsErr(err, catalog.ErrNotFound, "finding book by ID")
	}
	return repo.unmarshal(row), nil
}

func (repo bookRepository) QueryBooks(ctx context.Context, filter *catalog.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]catalog.Book, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).From(booksTable).Select(bookColumns...)

	if filter != nil {
		// books with Title, Author, Subject or ISBN matching the search keyword
		if filter.Search != "" {
			ds = ds.Where(containsExpression(exe, filter.Search, "title", "author", "subject", "isbn"))
		}
		if filter.Subject != "" {
			ds = ds.Where(goqu.C("subject").Eq(filter.Subject))
		}
		if filter.IsDigital != nil {
			ds = ds.Where(goqu.C("is_digital").Eq(*filter.IsDigital))
		}
	}
	ds = ds.Order(orderedExpressions(ordering, catalog.OrderingFields)...)

	var rows []bookRow
	if err := selectAll(ctx, exe, &rows, ds.Prepared(true)); err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	books := make([]catalog.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, repo.unmarshal(row))
	}
	return books, nil
}

func (repo bookRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).From(booksTable).
		Select(goqu.C("subject")).
		Distinct().
		Where(goqu.C("subject").IsNotNull(), goqu.C("subject").Neq("")).
		Order(goqu.C("subject").Asc()).
		Prepared(true)

	subjects := make([]string, 0)
	if err := selectAll(ctx, exe, &subjects, ds); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo bookRepository) GetStats(ctx context.Context, exec ...core.DBExecutor) (catalog.Stats, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).From(booksTable).Select(
		goqu.COUNT("*").As("titles"),
		goqu.L("COALESCE(SUM(CASE WHEN is_digital THEN 1 ELSE 0 END), 0)").As("digital_titles"),
		goqu.L("COALESCE(SUM(CASE WHEN is_digital THEN 0 ELSE total_copies END), 0)").As("total_copies"),
		goqu.L("COALESCE(SUM(CASE WHEN is_digital THEN 0 ELSE available_copies END), 0)").As("available_copies"),
	).Prepared(true)

	var stats catalog.Stats
	if err := get(ctx, exe, &stats, ds); err != nil {
		return catalog.Stats{}, errors.Wrap(err, "computing catalog stats")
	}
	return stats, nil
}

func (repo bookRepository) UpdateBook(ctx context.Context, book catalog.Book, exec ...core.DBExecutor) (catalog.Book, error) {
	exe := repo.getExec(exec)

	rec := repo.record(book)
	delete(rec, "created_at")
	// copies on loan are kept: available shifts with total
	rec["available_copies"] = goqu.L("available_copies + (? - total_copies)", book.TotalCopies)

	where := []exp.Expression{
		goqu.C("id").Eq(book.ID),
		goqu.L("available_copies + (? - total_copies) >= 0", book.TotalCopies),
	}
	if book.IsDigital {
		where = append(where, goqu.L("(is_digital OR available_copies = total_copies)"))
	}

	ds := dialect(exe).Update(booksTable).Set(rec).Where(where...).Prepared(true)
	n, err := execute(ctx, exe, ds)
	if err != nil {
		return catalog.Book{}, errors.Wrap(err, "updating book")
	}
	if n == 0 {
		current, err := repo.GetBook(ctx, book.ID, exe)
		if err != nil {
			return catalog.Book{}, err
		}
		if book.IsDigital && !current.IsDigital && current.OnLoan() > 0 {
			return catalog.Book{}, catalog.ErrDigitalOnLoan
		}
		return catalog.Book{}, catalog.ErrCopiesOnLoan
	}
	return repo.GetBook(ctx, book.ID, exe)
}

func (repo bookRepository) DeleteBook(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.ErrNotFound
	}
	exe := repo.getExec(exec)

	n, err := execute(ctx, exe, dialect(exe).Delete(booksTable).Where(goqu.C("id").Eq(id)).Prepared(true))
	if err != nil {
		return errors.Wrap(err, "deleting book")
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (repo bookRepository) AdjustAvailability(ctx context.Context, id string, delta int, exec ...core.DBExecutor) (catalog.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Book{}, catalog.ErrNotFound
	}
	exe := repo.getExec(exec)

	ds := dialect(exe).Update(booksTable).
		Set(goqu.Record{
			"available_copies": goqu.L("available_copies + ?", delta),
			"updated_at":       core.Now(),
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.L("available_copies + ? BETWEEN 0 AND total_copies", delta),
		).
		Prepared(true)

	n, err := execute(ctx, exe, ds)
	if err != nil {
		return catalog.Book{}, errors.Wrap(err, "adjusting available copies")
	}
	if n == 0 {
		if _, err = repo.GetBook(ctx, id, exe); err != nil {
			return catalog.Book{}, err
		}
		if delta < 0 {
			return catalog.Book{}, catalog.ErrNotAvailable
		}
		return catalog.Book{}, catalog.ErrExceedsTotal
	}
	return repo.GetBook(ctx, id, exe)
}
