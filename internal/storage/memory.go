package storage

import (
	"context"
	"sync"
	"time"
)

// Memory is a non-durable Store. It keeps the same insert/upsert semantics as
// the sqlite driver so tests exercise the real ledger behavior.
type Memory struct {
	mu      sync.Mutex
	handled map[string]time.Time
	grants  map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		handled: map[string]time.Time{},
		grants:  map[string]time.Time{},
	}
}

func (m *Memory) HasHandled(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handled[id]
	return ok, nil
}

func (m *Memory) MarkHandled(_ context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handled[id]; !ok {
		m.handled[id] = at
	}
	return nil
}

func (m *Memory) LastGranted(_ context.Context, did string) (time.Time, bool, error) {
	if did == "" {
		return time.Time{}, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.grants[did]
	return at, ok, nil
}

func (m *Memory) PutGrant(_ context.Context, did string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[did] = at
	return nil
}

func (m *Memory) Close() error { return nil }

// HandledCount reports how many notification ids were recorded. Test helper.
func (m *Memory) HandledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handled)
}
