// internal/loan/store.go
package loan

import (
	"context"
	"sync"

	"mmss/internal/exchange"
	"mmss/internal/storage"
)

const entity = "loan"

// MemoryStore keeps loans in process with an artefact -> open loan index.
type MemoryStore struct {
	mu    sync.Mutex
	open  map[int]int
	table *storage.Table[int, Loan]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		open:  make(map[int]int),
		table: storage.NewTable[int, Loan](),
	}
}

func (m *MemoryStore) Insert(_ context.Context, l *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.Open() {
		if holder, ok := m.open[l.ArtefactID]; ok {
			return exchange.Conflict("artefact", l.ArtefactID, "already on loan %d", holder)
		}
	}
	l.ID = m.table.NextID()
	l.Version = 1
	m.table.Insert(l.ID, *l)
	if l.Open() {
		m.open[l.ArtefactID] = l.ID
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int) (*Loan, error) {
	l, ok := m.table.Get(id)
	if !ok {
		return nil, exchange.NotFound(entity, id)
	}
	return &l, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Loan, error) {
	rows := m.table.Values()
	out := make([]*Loan, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, l *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *l
	next.Version++
	ok, err := m.table.Update(l.ID, next, checkVersion(l.ID, l.Version))
	if err != nil {
		return err
	}
	if !ok {
		return exchange.NotFound(entity, l.ID)
	}
	if !next.Open() && m.open[next.ArtefactID] == next.ID {
		delete(m.open, next.ArtefactID)
	}
	*l = next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.table.Get(id)
	if !ok {
		return exchange.NotFound(entity, id)
	}
	if err := checkVersion(id, version)(current); err != nil {
		return err
	}
	m.table.Delete(id)
	if m.open[current.ArtefactID] == id {
		delete(m.open, current.ArtefactID)
	}
	return nil
}

func checkVersion(id, version int) func(Loan) error {
	return func(current Loan) error {
		if current.Version != version {
			return exchange.Conflict(entity, id, "version %d is stale, current is %d", version, current.Version)
		}
		return nil
	}
}
