package syncagent

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the default in-process order cache.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]OrderSnapshot
}

// NewMemoryStore builds an empty cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]OrderSnapshot)}
}

func (s *MemoryStore) Upsert(order OrderSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
}

func (s *MemoryStore) Remove(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
}

func (s *MemoryStore) ReplaceAll(orders []OrderSnapshot) {
	next := make(map[uuid.UUID]OrderSnapshot, len(orders))
	for _, order := range orders {
		next[order.ID] = order
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = next
}

// Get returns the cached snapshot for an order.
func (s *MemoryStore) Get(orderID uuid.UUID) (OrderSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	return order, ok
}

// Len reports the cache size.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
