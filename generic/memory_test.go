package generic_test

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
)

// memoryEntries is an in-memory EntryStore for ledger tests.
type memoryEntries struct {
	mu      sync.Mutex
	entries map[generic.EmployeeID][]generic.Entry
	keys    map[string]bool
}

func newMemoryEntries() *memoryEntries {
	return &memoryEntries{
		entries: make(map[generic.EmployeeID][]generic.Entry),
		keys:    make(map[string]bool),
	}
}

func (m *memoryEntries) AppendEntry(_ context.Context, e generic.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != "" && m.keys[e.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	list := append(m.entries[e.EmployeeID], e)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	m.entries[e.EmployeeID] = list
	if e.IdempotencyKey != "" {
		m.keys[e.IdempotencyKey] = true
	}
	return nil
}

func (m *memoryEntries) ListEntries(_ context.Context, employeeID generic.EmployeeID) ([]generic.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]generic.Entry, len(m.entries[employeeID]))
	copy(out, m.entries[employeeID])
	return out, nil
}
