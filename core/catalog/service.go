package catalog

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("book not found")
	ErrNotAvailable     = core.NewInvariantViolationError("not available")
	ErrExceedsTotal     = core.NewInvariantViolationError("available copies cannot exceed total copies")
	ErrCopiesOnLoan     = core.NewInvariantViolationError("total copies cannot be less than the copies on loan")
	ErrDigitalOnLoan    = core.NewInvariantViolationError("a book with copies on loan cannot become digital")
	ErrPermissionDenied = core.NewPermissionDeniedError("only library staff can manage the catalog")
	ErrDigitalBook      = core.NewValidationError(
		errors.New("digital books are not circulated"),
		core.FieldError{Field: "book_id", Error: "digital books are not circulated"},
	)

	errInvalidDelta = errors.New("availability delta must be -1 or +1")
)

type (
	Repository interface {
		CreateBook(ctx context.Context, book Book, exec ...core.DBExecutor) (Book, error)
		GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (Book, error)
		// QueryBooks applies AND operation on available QueryFilter fields.
		QueryBooks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Book, error)
		QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
		GetStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
		// UpdateBook stores the descriptive fields and total copies of book, shifting available copies
		// by the change of total copies. Fails with ErrCopiesOnLoan or ErrDigitalOnLoan.
		UpdateBook(ctx context.Context, book Book, exec ...core.DBExecutor) (Book, error)
		DeleteBook(ctx context.Context, id string, exec ...core.DBExecutor) error
		// AdjustAvailability adds delta to available copies if the result stays within [0, total copies].
		AdjustAvailability(ctx context.Context, id string, delta int, exec ...core.DBExecutor) (Book, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, translator: translator, logger: logger}
}

func (svc *Service) checkStaff(actor user.Actor) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}
	return nil
}

func (svc *Service) validateBook(nb NewBook) error {
	if err := svc.validate.Struct(nb); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.Actor, nb NewBook) (Book, error) {
	if err := svc.checkStaff(actor); err != nil {
		return Book{}, err
	}
	nb.Clean()
	if err := svc.validateBook(nb); err != nil {
		return Book{}, err
	}

	now := core.Now()
	return svc.repo.CreateBook(ctx, Book{
		Title:           nb.Title,
		Author:          nb.Author,
		Subject:         nb.Subject,
		ISBN:            nb.ISBN,
		TotalCopies:     nb.TotalCopies,
		AvailableCopies: nb.TotalCopies,
		IsDigital:       nb.IsDigital,
		DigitalURL:      nb.DigitalURL,
		Description:     nb.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) Get(ctx context.Context, id string, exec ...core.DBExecutor) (Book, error) {
	return svc.repo.GetBook(ctx, id, exec...)
}

// Query lists books, by title (byte-wise) unless ordering says otherwise.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Book, error) {
	filter.Clean()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	return svc.repo.QueryBooks(ctx, &filter, ordering)
}

func (svc *Service) Subjects(ctx context.Context) ([]string, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) Stats(ctx context.Context, actor user.Actor) (Stats, error) {
	if err := svc.checkStaff(actor); err != nil {
		return Stats{}, err
	}
	stats, err := svc.repo.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.OnLoan = stats.TotalCopies - stats.AvailableCopies
	return stats, nil
}

func (svc *Service) Update(ctx context.Context, actor user.Actor, id string, ub UpdateBook) (Book, error) {
	if err := svc.checkStaff(actor); err != nil {
		return Book{}, err
	}
	book, err := svc.repo.GetBook(ctx, id)
	if err != nil {
		return Book{}, err
	}

	nb := ub.merge(book)
	if err = svc.validateBook(nb); err != nil {
		return Book{}, err
	}

	book.Title = nb.Title
	book.Author = nb.Author
	book.Subject = nb.Subject
	book.ISBN = nb.ISBN
	book.TotalCopies = nb.TotalCopies
	book.IsDigital = nb.IsDigital
	book.DigitalURL = nb.DigitalURL
	book.Description = nb.Description
	book.UpdatedAt = core.Now()
	return svc.repo.UpdateBook(ctx, book)
}

// Delete removes the book whatever its issues; those keep their title and author snapshot.
func (svc *Service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if err := svc.checkStaff(actor); err != nil {
		return err
	}
	if err := svc.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("book deleted", map[string]interface{}{"book_id": id, "by": actor.ID})
	return nil
}

// AdjustAvailability is reserved to the circulation engine, which runs it in the transaction of the transition.
func (svc *Service) AdjustAvailability(ctx context.Context, id string, delta int, exec core.DBExecutor) (Book, error) {
	if delta != -1 && delta != 1 {
		return Book{}, errInvalidDelta
	}
	return svc.repo.AdjustAvailability(ctx, id, delta, exec)
}
