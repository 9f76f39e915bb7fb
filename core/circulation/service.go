package circulation

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("issue not found")
	ErrAlreadyOpen      = core.NewInvariantViolationError("you have already requested or issued this book")
	ErrAlreadyReturned  = core.NewInvalidTransitionError("already returned")
	ErrPermissionDenied = core.NewPermissionDeniedError("you are not allowed to perform this action")
	ErrNotAStudent      = core.NewValidationError(
		errors.New("books can only be issued to students"),
		core.FieldError{Field: "student_id", Error: "books can only be issued to students"},
	)
)

const reminderTemplate = "overdue_reminder"

type (
	Repository interface {
		// CreateIssue fails with ErrAlreadyOpen if the student has an open issue for the book.
		CreateIssue(ctx context.Context, iss Issue, exec ...core.DBExecutor) (Issue, error)
		GetIssue(ctx context.Context, id string, exec ...core.DBExecutor) (Issue, error)
		// QueryIssues applies AND operation on available QueryFilter fields.
		QueryIssues(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Issue, error)
		// TransitionIssue stores the transition fields of iss if its persisted status is one of from.
		// Reports whether the issue was updated.
		TransitionIssue(ctx context.Context, iss Issue, from []Status, exec ...core.DBExecutor) (bool, error)
		MarkReminded(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
	}

	// BookStore is the part of the catalog the engine works with.
	BookStore interface {
		Get(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Book, error)
		AdjustAvailability(ctx context.Context, id string, delta int, exec core.DBExecutor) (catalog.Book, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		books      BookStore
		directory  user.Directory
		mailSvc    core.EmailService
		templates  *core.EmailTemplates
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		policy     Policy
		now        func() time.Time
	}

	reminderData struct {
		Name        string
		Title       string
		Author      string
		DueDate     string
		DaysOverdue int
		Fine        int
	}
)

func NewService(
	db core.DB,
	repo Repository,
	books BookStore,
	directory user.Directory,
	mailSvc core.EmailService,
	templates *core.EmailTemplates,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	policy Policy,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		books:      books,
		directory:  directory,
		mailSvc:    mailSvc,
		templates:  templates,
		logger:     logger,
		validate:   validate,
		translator: translator,
		policy:     policy,
		now:        core.Now,
	}
}

// SetClock replaces the clock of the service. Returned times are truncated to microseconds.
func (svc *Service) SetClock(now func() time.Time) {
	svc.now = func() time.Time { return now().UTC().Truncate(time.Microsecond) }
}

func (svc *Service) Policy() Policy { return svc.policy }

// Now returns the current time of the service clock.
func (svc *Service) Now() time.Time { return svc.now() }

func transitionError(action string, from Status) error {
	if from == StatusReturned && action == "return" {
		return ErrAlreadyReturned
	}
	return core.NewInvalidTransitionError(fmt.Sprintf("cannot %s an issue with status %s", action, from))
}

func (svc *Service) display(iss Issue, asOf time.Time) Issue {
	iss.DisplayStatus = iss.StatusAt(asOf)
	return iss
}

// Request queues a request to borrow a physical book. Students request for themselves,
// library staff on behalf of a student. Copies are only reserved on approval.
func (svc *Service) Request(ctx context.Context, actor user.Actor, ni NewIssue) (Issue, error) {
	switch {
	case actor.IsStudent():
		ni.StudentID = actor.ID
	case actor.IsStaff():
	default:
		return Issue{}, ErrPermissionDenied
	}

	ni.Clean()
	if err := svc.validate.Struct(ni); err != nil {
		return Issue{}, core.TranslateValidationErrors(err, svc.translator)
	}

	book, err := svc.books.Get(ctx, ni.BookID)
	if err != nil {
		return Issue{}, err
	}
	if book.IsDigital {
		return Issue{}, catalog.ErrDigitalBook
	}
	if svc.policy.RequireAvailableOnRequest && book.AvailableCopies < 1 {
		return Issue{}, catalog.ErrNotAvailable
	}

	if !actor.IsStudent() {
		student, err := svc.directory.GetUser(ctx, ni.StudentID)
		if err != nil {
			return Issue{}, err
		}
		if student.Role != user.RoleStudent {
			return Issue{}, ErrNotAStudent
		}
	}

	now := svc.now()
	iss, err := svc.repo.CreateIssue(ctx, Issue{
		BookID:      book.ID,
		BookTitle:   book.Title,
		BookAuthor:  book.Author,
		StudentID:   ni.StudentID,
		RequestedAt: now,
		DueDate:     svc.policy.DueDate(now),
		Status:      StatusRequested,
		UpdatedAt:   now,
	})
	if err != nil {
		return Issue{}, err
	}
	return svc.display(iss, now), nil
}

// transition runs apply and the copy adjustment of a transition in one transaction.
// The issue is only updated if its status is still one of from when the update runs.
func (svc *Service) transition(
	ctx context.Context,
	id, action string,
	from []Status,
	apply func(iss *Issue, now time.Time) error,
	adjust func(tx core.DBExecutor, iss Issue) error,
) (Issue, error) {
	var result Issue
	now := svc.now()

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		iss, err := svc.repo.GetIssue(ctx, id, tx)
		if err != nil {
			return err
		}
		if !statusIn(iss.Status, from) {
			return transitionError(action, iss.Status)
		}

		if err = apply(&iss, now); err != nil {
			return err
		}
		iss.UpdatedAt = now

		ok, err := svc.repo.TransitionIssue(ctx, iss, from, tx)
		if err != nil {
			return err
		}
		if !ok {
			// lost a race against another transition of the same issue
			current, err := svc.repo.GetIssue(ctx, id, tx)
			if err != nil {
				return err
			}
			return transitionError(action, current.Status)
		}

		if adjust != nil {
			if err = adjust(tx, iss); err != nil {
				return err
			}
		}
		result = iss
		return nil
	})
	if err != nil {
		return Issue{}, err
	}
	return svc.display(result, now), nil
}

// Approve issues the requested book to the student and takes one copy out of the available ones.
func (svc *Service) Approve(ctx context.Context, actor user.Actor, id string) (Issue, error) {
	if !actor.IsStaff() {
		return Issue{}, ErrPermissionDenied
	}

	return svc.transition(ctx, id, "approve", []Status{StatusRequested},
		func(iss *Issue, now time.Time) error {
			iss.Status = StatusIssued
			iss.IssuedDate = &now
			iss.IssuedBy = actor.ID
			return nil
		},
		func(tx core.DBExecutor, iss Issue) error {
			book, err := svc.books.Get(ctx, iss.BookID, tx)
			if err != nil {
				return err
			}
			if book.IsDigital {
				return catalog.ErrDigitalBook
			}
			_, err = svc.books.AdjustAvailability(ctx, iss.BookID, -1, tx)
			return err
		},
	)
}

// Return closes the loan, computes the fine and puts the copy back on the shelf.
// Issues of deleted books are closed without any copy adjustment.
func (svc *Service) Return(ctx context.Context, actor user.Actor, id string) (Issue, error) {
	if !actor.IsStaff() {
		return Issue{}, ErrPermissionDenied
	}

	return svc.transition(ctx, id, "return", []Status{StatusIssued, StatusOverdue},
		func(iss *Issue, now time.Time) error {
			iss.Status = StatusReturned
			iss.ReturnDate = &now
			iss.ReceivedBy = actor.ID
			iss.FineAmount = svc.policy.Fine(iss.DueDate, now)
			return nil
		},
		func(tx core.DBExecutor, iss Issue) error {
			_, err := svc.books.AdjustAvailability(ctx, iss.BookID, 1, tx)
			if core.IsNotFound(err) {
				svc.logger.Warn("returned issue of a deleted book", map[string]interface{}{
					"issue_id": iss.ID,
					"book_id":  iss.BookID,
				})
				return nil
			}
			return err
		},
	)
}

// Cancel withdraws a request: by its student, or rejected by library staff.
func (svc *Service) Cancel(ctx context.Context, actor user.Actor, id string) (Issue, error) {
	if !actor.IsStaff() && !actor.IsStudent() {
		return Issue{}, ErrPermissionDenied
	}

	return svc.transition(ctx, id, "cancel", []Status{StatusRequested},
		func(iss *Issue, now time.Time) error {
			if !actor.IsStaff() && iss.StudentID != actor.ID {
				return ErrPermissionDenied
			}
			iss.Status = StatusCancelled
			return nil
		},
		nil,
	)
}

func (svc *Service) Get(ctx context.Context, actor user.Actor, id string) (Issue, error) {
	iss, err := svc.repo.GetIssue(ctx, id)
	if err != nil {
		return Issue{}, err
	}
	if !actor.IsStaff() && iss.StudentID != actor.ID {
		return Issue{}, ErrPermissionDenied
	}
	return svc.display(iss, svc.now()), nil
}

// Query lists issues, most recent requests first unless ordering says otherwise.
// Students only get their own issues.
func (svc *Service) Query(ctx context.Context, actor user.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]Issue, error) {
	switch {
	case actor.IsStaff():
	case actor.IsStudent():
		filter.StudentID = actor.ID
	default:
		return nil, ErrPermissionDenied
	}
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			msg := fmt.Sprintf("invalid status: %q", st)
			return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: msg})
		}
	}

	now := svc.now()
	filter.Clean()
	// statuses match the status displayed now
	filter.StatusAsOf = now
	if filter.OverdueOnly {
		filter.DueBefore = now
		if len(filter.Statuses) == 0 {
			filter.Statuses = []Status{StatusOverdue}
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "requested_at"}}
	}

	issues, err := svc.repo.QueryIssues(ctx, &filter, ordering)
	if err != nil {
		return nil, err
	}
	for i := range issues {
		issues[i] = svc.display(issues[i], now)
	}
	return issues, nil
}

// Mine returns the issues of the acting user and their summary.
func (svc *Service) Mine(ctx context.Context, actor user.Actor) ([]Issue, Summary, error) {
	issues, err := svc.repo.QueryIssues(ctx, &QueryFilter{StudentID: actor.ID}, []core.DBOrdering{{Field: "requested_at"}})
	if err != nil {
		return nil, Summary{}, err
	}
	now := svc.now()
	for i := range issues {
		issues[i] = svc.display(issues[i], now)
	}
	return issues, Summarize(issues, now), nil
}

// RemindOverdue emails the borrowers of overdue books not reminded within the reminder interval.
// Returns the number of reminders sent.
func (svc *Service) RemindOverdue(ctx context.Context, actor user.Actor) (int, error) {
	if !actor.IsStaff() {
		return 0, ErrPermissionDenied
	}

	now := svc.now()
	issues, err := svc.repo.QueryIssues(ctx, &QueryFilter{
		Statuses:       []Status{StatusIssued, StatusOverdue},
		DueBefore:      now,
		RemindedBefore: now.Add(-svc.policy.ReminderInterval),
	}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return 0, err
	}

	messages, err := svc.reminders(ctx, issues, now)
	svc.mailSvc.SendMessages(messages...)
	return len(messages), err
}

// reminders renders the reminder of each issue, then stamps the issue as reminded.
// The reminders built before an error are returned along with it.
func (svc *Service) reminders(ctx context.Context, issues []Issue, now time.Time) ([]*core.EmailMessage, error) {
	messages := make([]*core.EmailMessage, 0, len(issues))
	for _, iss := range issues {
		student, err := svc.directory.GetUser(ctx, iss.StudentID)
		if err != nil {
			if core.IsNotFound(err) {
				svc.logger.Warn("overdue issue of an unknown student", map[string]interface{}{"issue_id": iss.ID})
				continue
			}
			return messages, err
		}
		if student.Email == "" || !student.IsActive {
			continue
		}

		days := DaysOverdue(iss.DueDate, now)
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Overdue book: " + iss.BookTitle,
			TemplateName: reminderTemplate,
			TemplateData: reminderData{
				Name:        student.Name,
				Title:       iss.BookTitle,
				Author:      iss.BookAuthor,
				DueDate:     iss.DueDate.Format("Mon, 02 Jan 2006"),
				DaysOverdue: days,
				Fine:        days * svc.policy.FineRatePerDay,
			},
		}
		if err = msg.Render(svc.templates); err != nil {
			return messages, errors.Wrapf(err, "rendering reminder of issue %s", iss.ID)
		}
		if err = svc.repo.MarkReminded(ctx, iss.ID, now); err != nil {
			return messages, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func statusIn(s Status, statuses []Status) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
