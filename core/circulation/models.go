package circulation

import (
	"time"

	"github.com/trezcool/sose/core"
)

type Status string

// Statuses
const (
	StatusRequested Status = "requested"
	StatusIssued    Status = "issued"
	StatusReturned  Status = "returned"
	StatusOverdue   Status = "overdue" // legacy persisted value; otherwise derived from an issued due date
	StatusCancelled Status = "cancelled"
)

var (
	AllStatuses  = []Status{StatusRequested, StatusIssued, StatusReturned, StatusOverdue, StatusCancelled}
	OpenStatuses = []Status{StatusRequested, StatusIssued, StatusOverdue}

	// OrderingFields are the fields issues may be ordered by.
	OrderingFields = []string{"requested_at", "due_date", "issued_date", "return_date", "status", "fine_amount"}
)

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// isOnLoan reports whether a copy of the book is held by the borrower.
func (s Status) isOnLoan() bool { return s == StatusIssued || s == StatusOverdue }

// Issue is one borrowing episode of a physical book by a student.
type Issue struct {
	ID          string     `json:"id"`
	BookID      string     `json:"book_id"`
	BookTitle   string     `json:"book_title"`
	BookAuthor  string     `json:"book_author"`
	StudentID   string     `json:"student_id"`
	RequestedAt time.Time  `json:"requested_at"` // UTC
	DueDate     time.Time  `json:"due_date"`     // UTC
	IssuedDate  *time.Time `json:"issued_date"`
	IssuedBy    string     `json:"issued_by,omitempty"`
	ReturnDate  *time.Time `json:"return_date"`
	ReceivedBy  string     `json:"received_by,omitempty"`
	FineAmount  int        `json:"fine_amount"`
	Status      Status     `json:"status"`
	RemindedAt  *time.Time `json:"reminded_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"` // UTC

	// DisplayStatus is StatusAt the time the issue was read.
	DisplayStatus Status `json:"display_status"`
}

// StatusAt derives the status shown at asOf: an issued book past its due date is overdue.
// The persisted status is left as is.
func (iss Issue) StatusAt(asOf time.Time) Status {
	if iss.Status == StatusIssued && asOf.After(iss.DueDate) {
		return StatusOverdue
	}
	return iss.Status
}

func (iss Issue) IsOpen() bool {
	return iss.Status == StatusRequested || iss.Status.isOnLoan()
}

// NewIssue contains information needed to request a book.
// StudentID is ignored when a student requests for themselves.
type NewIssue struct {
	BookID    string `json:"book_id" validate:"required,uuid"`
	StudentID string `json:"student_id" validate:"required"`
}

func (ni *NewIssue) Clean() {
	ni.BookID = core.CleanString(ni.BookID, true /* lower */)
	ni.StudentID = core.CleanString(ni.StudentID)
}

type QueryFilter struct {
	StudentID   string   `query:"student_id"`
	BookID      string   `query:"book_id"`
	Statuses    []Status `query:"-"`
	OverdueOnly bool     `query:"overdue"`

	// set by the service
	StatusAsOf     time.Time `query:"-"` // Statuses match StatusAt(StatusAsOf) when set
	DueBefore      time.Time `query:"-"`
	RemindedBefore time.Time `query:"-"` // includes never reminded issues
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.BookID = core.CleanString(qf.BookID, true /* lower */)
}

// Summary aggregates a borrower's issues for the "my books" view.
type Summary struct {
	Requested int `json:"requested"`
	Issued    int `json:"issued"`  // on loan, overdue included
	Overdue   int `json:"overdue"` // on loan past due date
	Returned  int `json:"returned"`
	TotalFine int `json:"total_fine"`
}

// Summarize counts the issues as they stand at asOf.
func Summarize(issues []Issue, asOf time.Time) Summary {
	var sum Summary
	for _, iss := range issues {
		switch iss.StatusAt(asOf) {
		case StatusRequested:
			sum.Requested++
		case StatusIssued:
			sum.Issued++
		case StatusOverdue:
			sum.Issued++
			sum.Overdue++
		case StatusReturned:
			sum.Returned++
		}
		sum.TotalFine += iss.FineAmount
	}
	return sum
}
