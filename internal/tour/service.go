// internal/tour/service.go
package tour

import (
	"context"

	"mmss/internal/exchange"
	"mmss/internal/visitors"
	"mmss/pkg/eventstore"
)

// Service defines the interface for tour scheduling.
type Service interface {
	CreateTour(ctx context.Context, visitorUsername string, date exchange.Date, participants int, shift ShiftTime) (*Tour, error)
	GetTour(ctx context.Context, id int) (*Tour, error)
	UpdateTour(ctx context.Context, id int, date exchange.Date, participants int) (*Tour, error)
	DeleteTour(ctx context.Context, id int) error

	ListTours(ctx context.Context) ([]*Tour, error)
	ListToursByVisitor(ctx context.Context, username string) ([]*Tour, error)
	Availability(ctx context.Context, date exchange.Date, shift ShiftTime) (Availability, error)

	History(ctx context.Context, id int) ([]eventstore.Event, error)
}

// Store persists tours. Insert assigns the id. Update and Delete fail with a
// Conflict when the stored version differs from the caller's.
type Store interface {
	Insert(ctx context.Context, t *Tour) error
	Get(ctx context.Context, id int) (*Tour, error)
	List(ctx context.Context) ([]*Tour, error)
	Update(ctx context.Context, t *Tour) error
	Delete(ctx context.Context, id, version int) error
}

// Visitors resolves usernames.
type Visitors interface {
	GetVisitor(ctx context.Context, username string) (*visitors.Visitor, error)
}
