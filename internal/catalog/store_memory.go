package catalog

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Item
}

// NewMemStore builds a store over already validated items.
func NewMemStore(items []Item) *MemStore {
	s := &MemStore{m: make(map[string]Item, len(items))}
	for _, it := range items {
		s.m[it.ID] = it.clone()
	}
	return s
}

func NewStore() *MemStore {
	return NewMemStore(DefaultSeed())
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.m))
	for _, it := range s.m {
		out = append(out, it.clone())
	}

	sortByID(out)
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.m[id]
	if !ok {
		return Item{}, false, nil
	}
	return it.clone(), true, nil
}

func (s *MemStore) AdjustInventory(ctx context.Context, id string, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.m[id]
	if !ok {
		return false, nil
	}
	if err := checkAdjust(it.Inventory, delta); err != nil {
		return true, err
	}

	it.Inventory += delta
	s.m[id] = it
	return true, nil
}

func (s *MemStore) IsInStock(ctx context.Context, id string, quantity int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.m[id]
	if !ok {
		return false, nil
	}
	return it.Inventory >= quantity, nil
}
