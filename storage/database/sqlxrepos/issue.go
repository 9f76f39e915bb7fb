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
	"github.com/trezcool/sose/core/circulation"
)

const issuesTable = "book_issues"

var issueColumns = []interface{}{
	"id", "book_id", "book_title", "book_author", "student_id", "requested_at", "due_date",
	"issued_date", "issued_by", "return_date", "received_by", "fine_amount", "status", "reminded_at", "updated_at",
}

type issueRow struct {
	ID          string      `db:"id"`
	BookID      string      `db:"book_id"`
	BookTitle   string      `db:"book_title"`
	BookAuthor  string      `db:"book_author"`
	StudentID   string      `db:"student_id"`
	RequestedAt time.Time   `db:"requested_at"`
	DueDate     time.Time   `db:"due_date"`
	IssuedDate  null.Time   `db:"issued_date"`
	IssuedBy    null.String `db:"issued_by"`
	ReturnDate  null.Time   `db:"return_date"`
	ReceivedBy  null.String `db:"received_by"`
	FineAmount  int         `db:"fine_amount"`
	Status      string      `db:"status"`
	RemindedAt  null.Time   `db:"reminded_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type issueRepository struct {
	repository
}

var _ circulation.Repository = (*issueRepository)(nil) // interface compliance check

func NewIssueRepository(exec core.DBExecutor) *issueRepository {
	return &issueRepository{repository{exec: exec}}
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// transitionRecord holds the columns changed by a transition.
func (repo issueRepository) transitionRecord(iss circulation.Issue) goqu.Record {
	return goqu.Record{
		"status":      string(iss.Status),
		"issued_date": nullTime(iss.IssuedDate),
		"issued_by":   null.NewString(iss.IssuedBy, iss.IssuedBy != ""),
		"return_date": nullTime(iss.ReturnDate),
		"received_by": null.NewString(iss.ReceivedBy, iss.ReceivedBy != ""),
		"fine_amount": iss.FineAmount,
		"updated_at":  iss.UpdatedAt.UTC(),
	}
}

func (repo issueRepository) unmarshal(row issueRow) circulation.Issue {
	return circulation.Issue{
		ID:          row.ID,
		BookID:      row.BookID,
		BookTitle:   row.BookTitle,
		BookAuthor:  row.BookAuthor,
		StudentID:   row.StudentID,
		RequestedAt: row.RequestedAt.UTC(),
		DueDate:     row.DueDate.UTC(),
		IssuedDate:  timePtr(row.IssuedDate),
		IssuedBy:    row.IssuedBy.String,
		ReturnDate:  timePtr(row.ReturnDate),
		ReceivedBy:  row.ReceivedBy.String,
		FineAmount:  row.FineAmount,
		Status:      circulation.Status(row.Status),
		RemindedAt:  timePtr(row.RemindedAt),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func statusValues(statuses []circulation.Status) []string {
	vals := make([]string, 0, len(statuses))
	for _, st := range statuses {
		vals = append(vals, string(st))
	}
	return vals
}

func (repo issueRepository) CreateIssue(ctx context.Context, iss circulation.Issue, exec ...core.DBExecutor) (circulation.Issue, error) {
	exe := repo.getExec(exec)
	iss.ID = uuid.New().String()

	rec := repo.transitionRecord(iss)
	rec["id"] = iss.ID
	rec["book_id"] = iss.BookID
	rec["book_title"] = iss.BookTitle
	rec["book_author"] = iss.BookAuthor
	rec["student_id"] = iss.StudentID
	rec["requested_at"] = iss.RequestedAt.UTC()
	rec["due_date"] = iss.DueDate.UTC()
	rec["reminded_at"] = nullTime(iss.RemindedAt)

	if _, err := execute(ctx, exe, dialect(exe).Insert(issuesTable).Rows(rec).Prepared(true)); err != nil {
		if isUniqueViolation(err) {
			return circulation.Issue{}, circulation.ErrAlreadyOpen
		}
		return circulation.Issue{}, errors.Wrap(err, "inserting issue")
	}
	return repo.GetIssue(ctx, iss.ID, exe)
}

func (repo issueRepository) GetIssue(ctx context.Context, id string, exec ...core.DBExecutor) (circulation.Issue, error) {
	if _, err := uuid.Parse(id); err != nil {
		return circulation.Issue{}, circulation.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row issueRow
	ds := dialect(exe).From(issuesTable).Select(issueColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := get(ctx, exe, &row, ds); err != nil {
		return circulation.Issue{}, trapNoRowsErr(err, circulation.ErrNotFound, "finding issue by ID")
	}
	return repo.unmarshal(row), nil
}

func (repo issueRepository) QueryIssues(ctx context.Context, filter *circulation.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]circulation.Issue, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).From(issuesTable).Select(issueColumns...)

	if filter != nil {
		if filter.StudentID != "" {
			ds = ds.Where(goqu.C("student_id").Eq(filter.StudentID))
		}
		if filter.BookID != "" {
			if _, err := uuid.Parse(filter.BookID); err != nil {
				return []circulation.Issue{}, nil
			}
			ds = ds.Where(goqu.C("book_id").Eq(filter.BookID))
		}
		if len(filter.Statuses) > 0 {
			if filter.StatusAsOf.IsZero() {
				ds = ds.Where(goqu.C("status").In(statusValues(filter.Statuses)))
			} else {
				ds = ds.Where(statusAtExpression(filter.Statuses, filter.StatusAsOf.UTC()))
			}
		}
		if !filter.DueBefore.IsZero() {
			ds = ds.Where(goqu.C("due_date").Lt(filter.DueBefore.UTC()))
		}
		// never reminded, or not since RemindedBefore
		if !filter.RemindedBefore.IsZero() {
			ds = ds.Where(goqu.Or(
				goqu.C("reminded_at").IsNull(),
				goqu.C("reminded_at").Lte(filter.RemindedBefore.UTC()),
			))
		}
	}
	ds = ds.Order(orderedExpressions(ordering, circulation.OrderingFields)...)

	var rows []issueRow
	if err := selectAll(ctx, exe, &rows, ds.Prepared(true)); err != nil {
		return nil, errors.Wrap(err, "querying issues")
	}
	issues := make([]circulation.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, repo.unmarshal(row))
	}
	return issues, nil
}

// statusAtExpression matches issues whose circulation.Issue.StatusAt(asOf) is one of statuses.
func statusAtExpression(statuses []circulation.Status, asOf time.Time) exp.Expression {
	ors := make([]exp.Expression, 0, len(statuses))
	for _, st := range statuses {
		switch st {
		case circulation.StatusIssued:
			ors = append(ors, goqu.And(goqu.C("status").Eq(string(st)), goqu.C("due_date").Gte(asOf)))
		case circulation.StatusOverdue:
			ors = append(ors, goqu.Or(
				goqu.C("status").Eq(string(st)),
				goqu.And(goqu.C("status").Eq(string(circulation.StatusIssued)), goqu.C("due_date").Lt(asOf)),
			))
		default:
			ors = append(ors, goqu.C("status").Eq(string(st)))
		}
	}
	return goqu.Or(ors...)
}

func (repo issueRepository) TransitionIssue(ctx context.Context, iss circulation.Issue, from []circulation.Status, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).Update(issuesTable).
		Set(repo.transitionRecord(iss)).
		Where(
			goqu.C("id").Eq(iss.ID),
			goqu.C("status").In(statusValues(from)),
		).
		Prepared(true)

	n, err := execute(ctx, exe, ds)
	if err != nil {
		if isUniqueViolation(err) {
			return false, circulation.ErrAlreadyOpen
		}
		return false, errors.Wrap(err, "updating issue")
	}
	return n > 0, nil
}

func (repo issueRepository) MarkReminded(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	ds := dialect(exe).Update(issuesTable).
		Set(goqu.Record{"reminded_at": at.UTC()}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)

	if _, err := execute(ctx, exe, ds); err != nil {
		return errors.Wrap(err, "marking issue as reminded")
	}
	return nil
}
