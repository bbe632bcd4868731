package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m3rciful/exchangebot/internal/exchange"
)

// MemoryStore is an in-process Store for tests and development. Orders do
// not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*exchange.Order
	now    func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int64]*exchange.Order), now: time.Now}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, o *exchange.Order) (*exchange.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := cloneOrder(o)
	stored.ID = m.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now().UTC()
	}
	if stored.StatusUpdatedAt.IsZero() {
		stored.StatusUpdatedAt = stored.CreatedAt
	}
	m.orders[stored.ID] = stored
	return cloneOrder(stored), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id int64) (*exchange.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", exchange.ErrOrderNotFound, id)
	}
	return cloneOrder(o), nil
}

// ListRecent implements Store.
func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]*exchange.Order, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*exchange.Order, 0, limit)
	for id := m.nextID; id > 0 && len(out) < limit; id-- {
		if o, ok := m.orders[id]; ok {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

// Update implements Store. The store lock is held while fn runs.
func (m *MemoryStore) Update(_ context.Context, id int64, fn UpdateFn) (*exchange.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", exchange.ErrOrderNotFound, id)
	}
	work := cloneOrder(o)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.ID = id
	m.orders[id] = work
	return cloneOrder(work), nil
}
