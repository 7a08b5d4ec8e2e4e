// internal/loan/service.go
package loan

import (
	"context"

	"mmss/internal/collections"
	"mmss/internal/exchange"
	"mmss/internal/visitors"
	"mmss/pkg/eventstore"
)

// Service defines the interface for the loan lifecycle.
type Service interface {
	CreateLoan(ctx context.Context, artefactID int, visitorUsername string) (*Loan, error)
	GetLoan(ctx context.Context, id int) (*Loan, error)
	UpdateStatus(ctx context.Context, id int, status exchange.Status) (*Loan, error)
	DeleteLoan(ctx context.Context, id int) error

	ListLoans(ctx context.Context) ([]*Loan, error)
	ListLoansByStatus(ctx context.Context, status exchange.Status) ([]*Loan, error)
	ListLoansByDueDate(ctx context.Context, date exchange.Date) ([]*Loan, error)
	ListLoansBySubmittedDate(ctx context.Context, date exchange.Date) ([]*Loan, error)
	ListLoansByVisitor(ctx context.Context, username string) ([]*Loan, error)

	History(ctx context.Context, id int) ([]eventstore.Event, error)
}

// Store persists loans. Insert assigns the id and fails with a Conflict when
// the artefact already has an open loan. Update and Delete fail with a
// Conflict when the stored version differs from the caller's.
type Store interface {
	Insert(ctx context.Context, l *Loan) error
	Get(ctx context.Context, id int) (*Loan, error)
	List(ctx context.Context) ([]*Loan, error)
	Update(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, id, version int) error
}

// Artefacts is the artefact directory as the loan lifecycle sees it.
type Artefacts interface {
	GetArtefact(ctx context.Context, id int) (*collections.Artefact, error)
	SetActiveLoan(ctx context.Context, id int, loanID *int) error
}

// Visitors resolves usernames.
type Visitors interface {
	GetVisitor(ctx context.Context, username string) (*visitors.Visitor, error)
}
