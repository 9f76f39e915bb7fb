package circulation

import (
	"time"

	"github.com/trezcool/sose/core"
)

const day = 24 * time.Hour

// Policy holds the circulation rules of the library.
type Policy struct {
	LoanPeriod     time.Duration
	FineRatePerDay int
	// RequireAvailableOnRequest refuses requests for books with no copy left.
	RequireAvailableOnRequest bool
	// ReminderInterval is the minimum time between two overdue reminders of an issue.
	ReminderInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:       14 * day,
		FineRatePerDay:   2,
		ReminderInterval: day,
	}
}

// NewPolicy builds the policy from the library configuration, using defaults for unset values.
func NewPolicy(conf core.LibraryConfig) Policy {
	p := DefaultPolicy()
	if conf.LoanPeriod > 0 {
		p.LoanPeriod = conf.LoanPeriod
	}
	if conf.FineRatePerDay > 0 {
		p.FineRatePerDay = conf.FineRatePerDay
	}
	if conf.ReminderInterval > 0 {
		p.ReminderInterval = conf.ReminderInterval
	}
	p.RequireAvailableOnRequest = conf.RequireAvailableOnRequest
	return p
}

func (p Policy) DueDate(requestedAt time.Time) time.Time {
	return requestedAt.Add(p.LoanPeriod)
}

// Fine is the amount owed for a book returned at returnedAt; any started day past due counts in full.
func (p Policy) Fine(dueDate, returnedAt time.Time) int {
	return DaysOverdue(dueDate, returnedAt) * p.FineRatePerDay
}

// DaysOverdue is the number of started days between dueDate and asOf, 0 if asOf is not past dueDate.
func DaysOverdue(dueDate, asOf time.Time) int {
	d := asOf.Sub(dueDate)
	if d <= 0 {
		return 0
	}
	return int((d + day - 1) / day)
}
