package store

import (
	"errors"

	"github.com/jmulders/ccv_reconciler/models"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStore is the persistence boundary for reconciliation. Status
// transitions go through FailOrder/PlaceOrder only, so an order can never
// leave created state without the accompanying bookkeeping.
type OrderStore interface {
	GetOrder(id string) (*models.Order, error)
	GetOrderByToken(id, token string) (*models.Order, error)
	Save(order *models.Order) error
	FailOrder(order *models.Order) error
	PlaceOrder(order *models.Order) error
	SaveStoredInstrument(instrument *models.StoredInstrument) error

	AwaitingAuthorization() ([]models.Order, error)
	WithPendingRefunds() ([]models.Order, error)

	// Transaction runs fn against a store bound to one database
	// transaction, so all mutations of a reconciliation pass land
	// atomically.
	Transaction(fn func(OrderStore) error) error
}

// GormStore is the Postgres-backed OrderStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetOrder(id string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Instrument").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) GetOrderByToken(id, token string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Instrument").First(&order, "id = ? AND access_token = ?", id, token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) Save(order *models.Order) error {
	if err := s.db.Save(order).Error; err != nil {
		return err
	}
	if order.Instrument.OrderID == order.ID {
		return s.db.Save(&order.Instrument).Error
	}
	return nil
}

func (s *GormStore) FailOrder(order *models.Order) error {
	order.Status = models.OrderStatusFailed
	return s.Save(order)
}

func (s *GormStore) PlaceOrder(order *models.Order) error {
	order.Status = models.OrderStatusOpen
	return s.Save(order)
}

func (s *GormStore) SaveStoredInstrument(instrument *models.StoredInstrument) error {
	return s.db.Create(instrument).Error
}

func (s *GormStore) AwaitingAuthorization() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Instrument").
		Where("status = ?", models.OrderStatusCreated).
		Order("created_at").
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) WithPendingRefunds() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Instrument").
		Where("has_pending_refunds = ?", true).
		Order("created_at").
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) Transaction(fn func(OrderStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

var _ OrderStore = (*GormStore)(nil)
