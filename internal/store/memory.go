package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero = never
}

// MemoryKV is an in-process, thread-safe KV implementation. It exists
// for tests and throwaway dev runs (DB_URL=memory); TTLs are evaluated
// against the injected clock so tests can advance time deterministically.
type MemoryKV struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemoryKV creates an empty store reading time from clock.
func NewMemoryKV(clock clockwork.Clock) *MemoryKV {
	return &MemoryKV{
		clock:   clock,
		entries: make(map[string]memEntry),
	}
}

func (m *MemoryKV) live(e memEntry) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(m.clock.Now())
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !m.live(e) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryKV) Put(_ context.Context, key, value string, ttl time.Duration) error {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = e
	return nil
}

func (m *MemoryKV) List(_ context.Context, prefix string, limit int) ([]string, error) {
	m.mu.RLock()
	matched := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) && m.live(e) {
			matched = append(matched, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryKV) Ping(context.Context) error { return nil }

func (m *MemoryKV) Close() error { return nil }
