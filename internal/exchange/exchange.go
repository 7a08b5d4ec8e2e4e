// internal/exchange/exchange.go
package exchange

import (
	"fmt"
	"time"
)

// Status is the lifecycle state shared by every exchange.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusActive    Status = "ACTIVE"
	StatusOverdue   Status = "OVERDUE"
	StatusReturned  Status = "RETURNED"
	StatusCancelled Status = "CANCELLED"

	// StatusBooked is the only state a tour carries while it exists.
	StatusBooked Status = "BOOKED"
)

var knownStatuses = map[Status]bool{
	StatusRequested: true,
	StatusApproved:  true,
	StatusActive:    true,
	StatusOverdue:   true,
	StatusReturned:  true,
	StatusCancelled: true,
	StatusBooked:    true,
}

// ParseStatus validates a status name received from a caller.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !knownStatuses[status] {
		return "", Validation("status", "unknown status %q", s)
	}
	return status, nil
}

// Terminal reports whether no further transition can leave the status.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

// Exchange holds the fields common to loans and tours.
type Exchange struct {
	ID              int    `json:"id" db:"id"`
	Status          Status `json:"status" db:"status"`
	SubmittedDate   Date   `json:"submitted_date" db:"submitted_date"`
	VisitorUsername string `json:"visitor_username" db:"visitor_username"`
	Version         int    `json:"version" db:"version"`
}

// Header returns the common fields; loans and tours get it through embedding.
func (e Exchange) Header() Exchange {
	return e
}

// Record is anything that carries an exchange header.
type Record interface {
	Header() Exchange
}

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

// Today returns the calendar date of the clock's current time.
func (c Clock) Today() Date {
	if c == nil {
		return DateOf(time.Now())
	}
	return DateOf(c())
}

// Money is an amount in cents.
type Money int64

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
