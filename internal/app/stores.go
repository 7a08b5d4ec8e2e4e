// internal/app/stores.go
package app

import (
	"github.com/jmoiron/sqlx"

	"mmss/internal/collections"
	"mmss/internal/loan"
	"mmss/internal/tour"
	"mmss/internal/visitors"
	"mmss/pkg/eventstore"
)

// Stores bundles the persistence of every service.
type Stores struct {
	Loans     loan.Store
	Tours     tour.Store
	Artefacts collections.Store
	Visitors  visitors.Store
	Events    eventstore.Store
}

// NewStores returns SQL stores over db, or in-process stores when db is nil.
func NewStores(db *sqlx.DB) Stores {
	if db == nil {
		return Stores{
			Loans:     loan.NewMemoryStore(),
			Tours:     tour.NewMemoryStore(),
			Artefacts: collections.NewMemoryStore(),
			Visitors:  visitors.NewMemoryStore(),
			Events:    eventstore.NewMemoryStore(),
		}
	}
	return Stores{
		Loans:     loan.NewSQLStore(db),
		Tours:     tour.NewSQLStore(db),
		Artefacts: collections.NewSQLStore(db),
		Visitors:  visitors.NewSQLStore(db),
		Events:    eventstore.NewEventStore(db),
	}
}
