package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBuffer = 64

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Storage. Every subscriber sees every write.
type Memory struct {
	mu          sync.RWMutex
	entries     map[string]memoryEntry
	subscribers map[int]chan Event
	nextID      int
	dropped     atomic.Uint64
	now         func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[string]memoryEntry),
		subscribers: make(map[int]chan Event),
		now:         time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur == entry {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.broadcastLocked(Event{Key: key, Value: value, Origin: OriginFromContext(ctx)})
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	origin := OriginFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if _, ok := m.entries[key]; !ok {
			continue
		}
		delete(m.entries, key)
		m.broadcastLocked(Event{Key: key, Deleted: true, Origin: origin})
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers, id)
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}

// Dropped reports events discarded because a subscriber fell behind.
func (m *Memory) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Memory) broadcastLocked(ev Event) {
	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			m.dropped.Add(1)
		}
	}
}
