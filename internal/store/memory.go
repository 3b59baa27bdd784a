package store

import (
	"container/list"
	"context"
	"sync"
	"time"

	"sales-dashboard/internal/models"
)

// Memory is an LRU of datasets with a sliding TTL.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	items      map[string]*list.Element
	lru        *list.List
	now        func() time.Time
}

type memoryEntry struct {
	id        string
	dataset   models.Dataset
	expiresAt time.Time
}

func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	return &Memory{
		maxEntries: maxEntries,
		ttl:        ttl,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
}

func (m *Memory) Put(_ context.Context, ds models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &memoryEntry{id: ds.ID, dataset: ds, expiresAt: m.now().Add(m.ttl)}
	if elem, ok := m.items[ds.ID]; ok {
		elem.Value = entry
		m.lru.MoveToFront(elem)
		return nil
	}

	m.items[ds.ID] = m.lru.PushFront(entry)
	for m.maxEntries > 0 && m.lru.Len() > m.maxEntries {
		m.remove(m.lru.Back())
	}
	return nil
}

// Get returns the dataset and pushes its expiry forward.
func (m *Memory) Get(_ context.Context, id string) (models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[id]
	if !ok {
		return models.Dataset{}, ErrNotFound
	}
	entry := elem.Value.(*memoryEntry)
	now := m.now()
	if now.After(entry.expiresAt) {
		m.remove(elem)
		return models.Dataset{}, ErrNotFound
	}
	entry.expiresAt = now.Add(m.ttl)
	m.lru.MoveToFront(elem)
	return entry.dataset, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[id]; ok {
		m.remove(elem)
	}
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []*list.Element
	for elem := m.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		m.remove(elem)
	}
	return len(expired)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.lru.Init()
	return nil
}

func (m *Memory) remove(elem *list.Element) {
	delete(m.items, elem.Value.(*memoryEntry).id)
	m.lru.Remove(elem)
}
