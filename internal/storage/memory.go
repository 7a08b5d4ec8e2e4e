// internal/storage/memory.go
package storage

import "sync"

// Table is an in-process keyed table that remembers insertion order.
// Values are stored by copy; callers get their own copies back.
type Table[K comparable, V any] struct {
	mu    sync.RWMutex
	seq   int
	order []K
	rows  map[K]V
}

func NewTable[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{rows: make(map[K]V)}
}

// NextID returns the next value of the table's integer sequence, starting at 1.
func (t *Table[K, V]) NextID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	return t.seq
}

func (t *Table[K, V]) Get(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[key]
	return v, ok
}

// Insert adds a row. It reports false if the key is taken.
func (t *Table[K, V]) Insert(key K, v V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[key]; ok {
		return false
	}
	t.rows[key] = v
	t.order = append(t.order, key)
	return true
}

// Update replaces the row for key when check accepts the current value.
// It reports whether the key exists. When check fails its error is returned
// and the row is left untouched.
func (t *Table[K, V]) Update(key K, v V, check func(current V) error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.rows[key]
	if !ok {
		return false, nil
	}
	if check != nil {
		if err := check(current); err != nil {
			return true, err
		}
	}
	t.rows[key] = v
	return true, nil
}

// Delete removes the row and reports whether it existed.
func (t *Table[K, V]) Delete(key K) bool {
	ok, _ := t.DeleteIf(key, nil)
	return ok
}

// DeleteIf removes the row for key when check accepts the current value,
// under the same lock as the check. It reports whether the key exists.
func (t *Table[K, V]) DeleteIf(key K, check func(current V) error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.rows[key]
	if !ok {
		return false, nil
	}
	if check != nil {
		if err := check(current); err != nil {
			return true, err
		}
	}
	delete(t.rows, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Values returns every row in insertion order. The slice is never nil.
func (t *Table[K, V]) Values() []V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]V, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.rows[k])
	}
	return out
}

// Scan visits rows in insertion order and keeps those matching keep.
func (t *Table[K, V]) Scan(keep func(V) bool) []V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]V, 0)
	for _, k := range t.order {
		if v := t.rows[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
