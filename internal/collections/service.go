// internal/collections/service.go
package collections

import (
	"context"

	"mmss/pkg/eventstore"
)

// Service defines the interface for the collections service.
type Service interface {
	AddArtefact(ctx context.Context, req NewArtefact) (*Artefact, error)
	GetArtefact(ctx context.Context, id int) (*Artefact, error)
	ListArtefacts(ctx context.Context) ([]*Artefact, error)
	SetActiveLoan(ctx context.Context, id int, loanID *int) error
	RemoveArtefact(ctx context.Context, id int) error
	History(ctx context.Context, id int) ([]eventstore.Event, error)
}

// Store persists artefacts. Insert assigns the id; Update bumps the version and
// fails with a Conflict when the stored version differs from a.Version. Delete
// is a Conflict when the version is stale or the artefact is on loan.
type Store interface {
	Insert(ctx context.Context, a *Artefact) error
	Get(ctx context.Context, id int) (*Artefact, error)
	List(ctx context.Context) ([]*Artefact, error)
	Update(ctx context.Context, a *Artefact) error
	Delete(ctx context.Context, id, version int) error
}
