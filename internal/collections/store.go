// internal/collections/store.go
package collections

import (
	"context"
	"time"

	"mmss/internal/exchange"
	"mmss/internal/storage"
)

const entity = "artefact"

// MemoryStore keeps artefacts in process.
type MemoryStore struct {
	table *storage.Table[int, Artefact]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{table: storage.NewTable[int, Artefact]()}
}

func (m *MemoryStore) Insert(_ context.Context, a *Artefact) error {
	now := time.Now().UTC()
	a.ID = m.table.NextID()
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	m.table.Insert(a.ID, *a)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int) (*Artefact, error) {
	a, ok := m.table.Get(id)
	if !ok {
		return nil, exchange.NotFound(entity, id)
	}
	return &a, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Artefact, error) {
	rows := m.table.Values()
	out := make([]*Artefact, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, a *Artefact) error {
	next := *a
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	ok, err := m.table.Update(a.ID, next, func(current Artefact) error {
		if current.Version != a.Version {
			return exchange.Conflict(entity, a.ID, "version %d is stale, current is %d", a.Version, current.Version)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return exchange.NotFound(entity, a.ID)
	}
	*a = next
	return nil
}

// Delete removes the artefact only while it still has version and no
// active-loan marker.
func (m *MemoryStore) Delete(_ context.Context, id, version int) error {
	ok, err := m.table.DeleteIf(id, func(current Artefact) error {
		if current.OnLoan() {
			return exchange.Conflict(entity, id, "on loan %d", *current.ActiveLoanID)
		}
		if current.Version != version {
			return exchange.Conflict(entity, id, "version %d is stale, current is %d", version, current.Version)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return exchange.NotFound(entity, id)
	}
	return nil
}
