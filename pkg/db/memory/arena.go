package memory

import (
	"slices"
	"strconv"
	"sync"

	"parkslot/pkg/model"
)

// Table is a stable-id store. Ids are assigned from a monotonic sequence and never reused,
// so a deleted row cannot be confused with a later one.
type Table[T any] struct {
	mu   sync.RWMutex
	seq  int64
	rows map[int64]T
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{rows: make(map[int64]T)}
}

// Insert assigns the next id, lets build stamp it on the row and stores the result.
func (t *Table[T]) Insert(build func(id string) T) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	id := strconv.FormatInt(t.seq, 10)
	t.rows[t.seq] = build(id)
	return id
}

func (t *Table[T]) Get(id string) (T, bool) {
	var zero T
	key, ok := parseID(id)
	if !ok {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[key]
	return row, ok
}

// Replace overwrites an existing row. It reports false when id is unknown.
func (t *Table[T]) Replace(id string, row T) bool {
	key, ok := parseID(id)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[key]; !exists {
		return false
	}
	t.rows[key] = row
	return true
}

func (t *Table[T]) Delete(id string) bool {
	key, ok := parseID(id)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[key]; !exists {
		return false
	}
	delete(t.rows, key)
	return true
}

// Select returns the rows accepted by keep, in id order.
func (t *Table[T]) Select(keep func(T) bool) []T {
	t.mu.RLock()
	keys := make([]int64, 0, len(t.rows))
	for k, row := range t.rows {
		if keep == nil || keep(row) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k])
	}
	t.mu.RUnlock()
	return out
}

func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func parseID(id string) (int64, bool) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return 0, false
	}
	return key, true
}

// Arena holds the slot catalog and booking ledger for the in-memory backend.
// Rows are stored by value; callers receive copies.
type Arena struct {
	Slots    *Table[model.Slot]
	Bookings *Table[model.Booking]

	catalogMu sync.Mutex
	locksMu   sync.Mutex
	slotLocks map[string]*sync.Mutex
}

func NewArena() *Arena {
	return &Arena{
		Slots:     NewTable[model.Slot](),
		Bookings:  NewTable[model.Booking](),
		slotLocks: make(map[string]*sync.Mutex),
	}
}

// LockSlot blocks until the commit lock of slotID is held and returns its release.
func (a *Arena) LockSlot(slotID string) (unlock func()) {
	a.locksMu.Lock()
	mu, ok := a.slotLocks[slotID]
	if !ok {
		mu = &sync.Mutex{}
		a.slotLocks[slotID] = mu
	}
	a.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// LockCatalog serializes catalog writes that check number uniqueness before writing.
// Callers that also need a slot lock take it first.
func (a *Arena) LockCatalog() (unlock func()) {
	a.catalogMu.Lock()
	return a.catalogMu.Unlock
}

// Paginate applies limit/offset to rows already in the wanted order.
func Paginate[T any](rows []T, limit int, offset int64) []T {
	if offset >= int64(len(rows)) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
