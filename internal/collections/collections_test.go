package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmss/internal/exchange"
	"mmss/internal/storage/storagetest"
	"mmss/internal/telemetry"
	"mmss/pkg/eventstore"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLStore(storagetest.SQLite(t)),
	}
}

func newTestService(store Store) Service {
	return NewService(store, eventstore.NewMemoryStore(), WithLogger(telemetry.Discard()))
}

func TestAddAndGetArtefact(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(store)

			added, err := svc.AddArtefact(ctx, NewArtefact{Name: " Rosetta cast ", Loanable: true, LoanFee: 2500})
			require.NoError(t, err)
			assert.Equal(t, "Rosetta cast", added.Name)
			assert.Equal(t, 1, added.Version)

			got, err := svc.GetArtefact(ctx, added.ID)
			require.NoError(t, err)
			assert.Equal(t, added.ID, got.ID)
			assert.True(t, got.Loanable)
			assert.Equal(t, exchange.Money(2500), got.LoanFee)
			assert.False(t, got.OnLoan())

			_, err = svc.GetArtefact(ctx, added.ID+100)
			assert.ErrorIs(t, err, exchange.ErrNotFound)
		})
	}
}

func TestAddArtefact_Validation(t *testing.T) {
	svc := newTestService(NewMemoryStore())

	_, err := svc.AddArtefact(context.Background(), NewArtefact{Name: "  "})
	assert.ErrorIs(t, err, exchange.ErrValidation)

	_, err = svc.AddArtefact(context.Background(), NewArtefact{Name: "Vase", LoanFee: -1})
	assert.ErrorIs(t, err, exchange.ErrValidation)
}

func TestSetActiveLoan(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(store)
			a, err := svc.AddArtefact(ctx, NewArtefact{Name: "Mask", Loanable: true})
			require.NoError(t, err)

			first, second := 10, 11
			require.NoError(t, svc.SetActiveLoan(ctx, a.ID, &first))
			require.NoError(t, svc.SetActiveLoan(ctx, a.ID, &first), "same marker is a no-op")

			err = svc.SetActiveLoan(ctx, a.ID, &second)
			assert.ErrorIs(t, err, exchange.ErrConflict)

			got, err := svc.GetArtefact(ctx, a.ID)
			require.NoError(t, err)
			require.NotNil(t, got.ActiveLoanID)
			assert.Equal(t, first, *got.ActiveLoanID)
			assert.Equal(t, 2, got.Version)

			require.NoError(t, svc.SetActiveLoan(ctx, a.ID, nil))
			got, err = svc.GetArtefact(ctx, a.ID)
			require.NoError(t, err)
			assert.Nil(t, got.ActiveLoanID)

			assert.ErrorIs(t, svc.SetActiveLoan(ctx, 999, &first), exchange.ErrNotFound)
		})
	}
}

func TestRemoveArtefact(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(store)
			a, err := svc.AddArtefact(ctx, NewArtefact{Name: "Urn"})
			require.NoError(t, err)

			loanID := 3
			require.NoError(t, svc.SetActiveLoan(ctx, a.ID, &loanID))
			assert.ErrorIs(t, svc.RemoveArtefact(ctx, a.ID), exchange.ErrConflict)

			require.NoError(t, svc.SetActiveLoan(ctx, a.ID, nil))
			require.NoError(t, svc.RemoveArtefact(ctx, a.ID))
			assert.ErrorIs(t, svc.RemoveArtefact(ctx, a.ID), exchange.ErrNotFound)

			history, err := svc.History(ctx, a.ID)
			require.NoError(t, err)
			types := make([]string, 0, len(history))
			for _, e := range history {
				types = append(types, e.EventType)
			}
			assert.Equal(t, []string{"ArtefactAdded", "ArtefactLoanMarked", "ArtefactLoanMarked", "ArtefactRemoved"}, types)
		})
	}
}

// markingStore marks the artefact as on loan right after the service has read
// it, so the mark lands between the service's check and its delete.
type markingStore struct {
	Store
	loanID int
}

func (m *markingStore) Get(ctx context.Context, id int) (*Artefact, error) {
	a, err := m.Store.Get(ctx, id)
	if err != nil || a.OnLoan() {
		return a, err
	}
	marked := *a
	marked.ActiveLoanID = &m.loanID
	if err := m.Store.Update(ctx, &marked); err != nil {
		return nil, err
	}
	return a, nil
}

func TestRemoveArtefact_LoanMarkedAfterCheck(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := &Artefact{Name: "Lyre", Loanable: true}
			require.NoError(t, store.Insert(ctx, a))

			svc := newTestService(&markingStore{Store: store, loanID: 42})
			assert.ErrorIs(t, svc.RemoveArtefact(ctx, a.ID), exchange.ErrConflict)

			kept, err := store.Get(ctx, a.ID)
			require.NoError(t, err)
			require.NotNil(t, kept.ActiveLoanID)
			assert.Equal(t, 42, *kept.ActiveLoanID)
		})
	}
}

func TestStore_DeleteIsConditional(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := &Artefact{Name: "Mask"}
			require.NoError(t, store.Insert(ctx, a))

			loanID := 7
			marked := *a
			marked.ActiveLoanID = &loanID
			require.NoError(t, store.Update(ctx, &marked))

			assert.ErrorIs(t, store.Delete(ctx, a.ID, marked.Version), exchange.ErrConflict, "on loan")

			marked.ActiveLoanID = nil
			require.NoError(t, store.Update(ctx, &marked))
			assert.ErrorIs(t, store.Delete(ctx, a.ID, a.Version), exchange.ErrConflict, "stale version")

			require.NoError(t, store.Delete(ctx, a.ID, marked.Version))
			assert.ErrorIs(t, store.Delete(ctx, a.ID, marked.Version), exchange.ErrNotFound)
		})
	}
}

func TestStore_StaleUpdateIsConflict(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := &Artefact{Name: "Coin"}
			require.NoError(t, store.Insert(ctx, a))

			stale := *a
			a.Description = "bronze"
			require.NoError(t, store.Update(ctx, a))
			assert.Equal(t, 2, a.Version)

			stale.Description = "silver"
			assert.ErrorIs(t, store.Update(ctx, &stale), exchange.ErrConflict)

			missing := &Artefact{ID: 404, Version: 1}
			assert.ErrorIs(t, store.Update(ctx, missing), exchange.ErrNotFound)
		})
	}
}

func TestListArtefacts_InsertionOrder(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(store)

			empty, err := svc.ListArtefacts(ctx)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			for _, n := range []string{"c", "a", "b"} {
				_, err := svc.AddArtefact(ctx, NewArtefact{Name: n})
				require.NoError(t, err)
			}
			all, err := svc.ListArtefacts(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "c", all[0].Name)
			assert.Equal(t, "b", all[2].Name)
		})
	}
}
