package store

import (
	"sync"

	"github.com/jmulders/ccv_reconciler/models"
)

// MemoryStore keeps orders in a map. It backs tests and local simulated
// runs; Transaction is a plain mutex section since there is nothing to roll
// back.
type MemoryStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	instruments []models.StoredInstrument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: map[string]*models.Order{}}
}

func (s *MemoryStore) Put(order *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *order
	s.orders[order.ID.String()] = &copied
}

// StoredInstruments returns the vaulted cards saved so far.
func (s *MemoryStore) StoredInstruments() []models.StoredInstrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StoredInstrument, len(s.instruments))
	copy(out, s.instruments)
	return out
}

func (s *MemoryStore) GetOrder(id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *MemoryStore) GetOrderByToken(id, token string) (*models.Order, error) {
	order, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if order.AccessToken != token {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *MemoryStore) Save(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *order
	s.orders[order.ID.String()] = &copied
	return nil
}

func (s *MemoryStore) FailOrder(order *models.Order) error {
	order.Status = models.OrderStatusFailed
	return s.Save(order)
}

func (s *MemoryStore) PlaceOrder(order *models.Order) error {
	order.Status = models.OrderStatusOpen
	return s.Save(order)
}

func (s *MemoryStore) SaveStoredInstrument(instrument *models.StoredInstrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments = append(s.instruments, *instrument)
	return nil
}

func (s *MemoryStore) AwaitingAuthorization() ([]models.Order, error) {
	return s.scan(func(o *models.Order) bool { return o.Status == models.OrderStatusCreated })
}

func (s *MemoryStore) WithPendingRefunds() ([]models.Order, error) {
	return s.scan(func(o *models.Order) bool { return o.HasPendingRefunds })
}

func (s *MemoryStore) scan(match func(*models.Order) bool) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []models.Order
	for _, order := range s.orders {
		if match(order) {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (s *MemoryStore) Transaction(fn func(OrderStore) error) error {
	return fn(s)
}

var _ OrderStore = (*MemoryStore)(nil)
