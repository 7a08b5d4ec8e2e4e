// internal/collections/domain.go
package collections

import (
	"time"

	"mmss/internal/exchange"
)

// Artefact is a museum object. ActiveLoanID points at the artefact's open loan, if any.
type Artefact struct {
	ID           int            `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Description  string         `json:"description,omitempty" db:"description"`
	Loanable     bool           `json:"loanable" db:"loanable"`
	LoanFee      exchange.Money `json:"loan_fee" db:"loan_fee"`
	ActiveLoanID *int           `json:"active_loan_id,omitempty" db:"active_loan_id"`
	Version      int            `json:"version" db:"version"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// OnLoan reports whether the artefact has an open loan.
func (a *Artefact) OnLoan() bool {
	return a.ActiveLoanID != nil
}

// NewArtefact carries the caller-supplied fields of an artefact.
type NewArtefact struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Loanable    bool           `json:"loanable"`
	LoanFee     exchange.Money `json:"loan_fee"`
}

// ArtefactAddedEvent is recorded when an artefact enters the collection.
type ArtefactAddedEvent struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Loanable bool           `json:"loanable"`
	LoanFee  exchange.Money `json:"loan_fee"`
}

// ArtefactLoanMarkedEvent is recorded when the active-loan marker moves.
type ArtefactLoanMarkedEvent struct {
	ID           int  `json:"id"`
	ActiveLoanID *int `json:"active_loan_id"`
}

// ArtefactRemovedEvent is recorded when an artefact leaves the collection.
type ArtefactRemovedEvent struct {
	ID int `json:"id"`
}
