// internal/loan/domain.go
package loan

import (
	"mmss/internal/exchange"
)

// Loan is an exchange that lends one artefact to one visitor.
type Loan struct {
	exchange.Exchange
	ArtefactID int            `json:"artefact_id" db:"artefact_id"`
	DueDate    *exchange.Date `json:"due_date" db:"due_date"`
}

// Open reports whether the loan still holds its artefact.
func (l *Loan) Open() bool {
	return !l.Status.Terminal()
}

// transitions is the loan state machine. Statuses without an entry are terminal.
var transitions = map[exchange.Status][]exchange.Status{
	exchange.StatusRequested: {exchange.StatusApproved, exchange.StatusCancelled},
	exchange.StatusApproved:  {exchange.StatusActive, exchange.StatusCancelled},
	exchange.StatusActive:    {exchange.StatusReturned, exchange.StatusOverdue},
	exchange.StatusOverdue:   {exchange.StatusReturned},
}

// CanTransition reports whether a loan may move from one status to another.
func CanTransition(from, to exchange.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Deletable reports whether a loan in status s may be deleted outright.
// Approved and active loans must be resolved through a transition first.
func Deletable(s exchange.Status) bool {
	return s != exchange.StatusApproved && s != exchange.StatusActive
}

// ByDueDate matches loans due on date. Loans without a due date never match.
func ByDueDate(date exchange.Date) func(*Loan) bool {
	return func(l *Loan) bool { return l.DueDate != nil && *l.DueDate == date }
}

// LoanRequestedEvent is recorded when a loan is created.
type LoanRequestedEvent struct {
	ID              int           `json:"id"`
	ArtefactID      int           `json:"artefact_id"`
	VisitorUsername string        `json:"visitor_username"`
	SubmittedDate   exchange.Date `json:"submitted_date"`
}

// LoanStatusChangedEvent is recorded on every accepted transition.
type LoanStatusChangedEvent struct {
	ID      int             `json:"id"`
	From    exchange.Status `json:"from"`
	To      exchange.Status `json:"to"`
	DueDate *exchange.Date  `json:"due_date,omitempty"`
}

// LoanDeletedEvent is recorded when a loan is removed.
type LoanDeletedEvent struct {
	ID     int             `json:"id"`
	Status exchange.Status `json:"status"`
}
