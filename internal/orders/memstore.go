package orders

import (
	"context"
	"sync"
	"time"

	"github.com/orderdesk/orderdesk/internal/domain"
)

// MemStore is an in-memory Store. It backs unit tests and lets the service
// run without a database for local demos. Orders are deep-copied on the way
// in and out so callers never share memory with the store.
type MemStore struct {
	mu         sync.Mutex
	orders     map[int64]*domain.Order
	nextID     int64
	nextItemID int64
	now        func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders: make(map[int64]*domain.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemStore) Save(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !order.Saved() {
		s.nextID++
		order.ID = s.nextID
		if order.OrderDate.IsZero() {
			order.OrderDate = s.now()
		}
	}
	order.LastUpdated = s.now()

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if item.ID == 0 {
			s.nextItemID++
			item.ID = s.nextItemID
		}
	}

	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, id)
	return nil
}

func (s *MemStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[int64]*domain.Order)
	return nil
}

func (s *MemStore) Get(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (s *MemStore) List(_ context.Context) ([]domain.Order, error) {
	return s.listWhere(func(*domain.Order) bool { return true })
}

func (s *MemStore) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return s.listWhere(func(o *domain.Order) bool { return o.Status == status })
}

func (s *MemStore) ListSince(_ context.Context, since time.Time) ([]domain.Order, error) {
	cutoff := truncateToDate(since)
	return s.listWhere(func(o *domain.Order) bool {
		return !truncateToDate(o.OrderDate).Before(cutoff)
	})
}

func (s *MemStore) listWhere(match func(*domain.Order) bool) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]domain.Order, 0, len(s.orders))
	for id := int64(1); id <= s.nextID; id++ {
		order, ok := s.orders[id]
		if !ok || !match(order) {
			continue
		}
		orders = append(orders, *cloneOrder(order))
	}
	return orders, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = make([]domain.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	return &clone
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
