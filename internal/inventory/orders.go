package inventory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/pkg/common"
	"gorm.io/gorm"
)

// OrderQuery selects a page of orders
type OrderQuery struct {
	Offset int
	Limit  int
	Status domain.OrderStatus
	From   time.Time
	To     time.Time
}

// OrderStore owns order and order item records
type OrderStore struct {
	db       *gorm.DB
	pageSize int
	settle   func(ctx context.Context, id int64) (*SettleResult, error)
}

func NewOrderStore(db *gorm.DB, pageSize int) *OrderStore {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &OrderStore{db: db, pageSize: pageSize}
}

// Create stores an order with its items atomically
func (s *OrderStore) Create(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	if len(items) == 0 {
		return domain.ErrEmptyCart
	}
	for i := range items {
		if items[i].Quantity <= 0 {
			return domain.NewValidationError("quantity", "must be greater than zero")
		}
		if items[i].ID == 0 {
			items[i].ID = common.UUIDint64()
		}
	}
	if order.ID == 0 {
		order.ID = common.UUIDint64()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusUnpaid
	}
	if !order.Status.Valid() {
		return domain.NewValidationError("status", "unknown order status")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repository.NewGormOrderRepository(tx).Create(ctx, order, items)
	})
}

// Get returns an order with its items and their products
func (s *OrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return repository.NewGormOrderRepository(s.db).GetByID(ctx, id, true)
}

// List returns orders newest first and the total count
func (s *OrderStore) List(ctx context.Context, q OrderQuery) ([]domain.Order, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, domain.NewValidationError("status", "must be unpaid or paid")
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, 0, domain.NewValidationError("to", "must not be before from")
	}
	if q.Limit <= 0 {
		q.Limit = s.pageSize
	}
	return repository.NewGormOrderRepository(s.db).List(ctx, repository.OrderFilter{
		Status: q.Status,
		From:   q.From,
		To:     q.To,
	}, q.Offset, q.Limit)
}

// MarkPaid settles an order through the checkout workflow
func (s *OrderStore) MarkPaid(ctx context.Context, id int64) (*SettleResult, error) {
	if s.settle == nil {
		return nil, errors.New("order store has no checkout workflow attached")
	}
	return s.settle(ctx, id)
}

// Counts returns order counters per status
func (s *OrderStore) Counts(ctx context.Context) (repository.StatusCounts, error) {
	return repository.NewGormOrderRepository(s.db).Counts(ctx)
}
