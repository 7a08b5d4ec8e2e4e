// internal/tour/store.go
package tour

import (
	"context"

	"mmss/internal/exchange"
	"mmss/internal/storage"
)

const entity = "tour"

// MemoryStore keeps tours in process.
type MemoryStore struct {
	table *storage.Table[int, Tour]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{table: storage.NewTable[int, Tour]()}
}

func (m *MemoryStore) Insert(_ context.Context, t *Tour) error {
	t.ID = m.table.NextID()
	t.Version = 1
	m.table.Insert(t.ID, *t)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int) (*Tour, error) {
	t, ok := m.table.Get(id)
	if !ok {
		return nil, exchange.NotFound(entity, id)
	}
	return &t, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Tour, error) {
	rows := m.table.Values()
	out := make([]*Tour, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, t *Tour) error {
	next := *t
	next.Version++
	ok, err := m.table.Update(t.ID, next, checkVersion(t.ID, t.Version))
	if err != nil {
		return err
	}
	if !ok {
		return exchange.NotFound(entity, t.ID)
	}
	*t = next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id, version int) error {
	ok, err := m.table.DeleteIf(id, checkVersion(id, version))
	if err != nil {
		return err
	}
	if !ok {
		return exchange.NotFound(entity, id)
	}
	return nil
}

func checkVersion(id, version int) func(Tour) error {
	return func(current Tour) error {
		if current.Version != version {
			return exchange.Conflict(entity, id, "version %d is stale, current is %d", version, current.Version)
		}
		return nil
	}
}
