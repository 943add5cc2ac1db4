package repository

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	Status domain.OrderStatus
	From   time.Time
	To     time.Time
}

// StatusCounts holds order counters per status
type StatusCounts struct {
	Total  int64 `json:"total"`
	Unpaid int64 `json:"unpaid"`
	Paid   int64 `json:"paid"`
}

// OrderRepository handles database operations for orders and their items
type OrderRepository interface {
	// Create inserts an order together with its items
	Create(ctx context.Context, order *domain.Order, items []domain.OrderItem) error

	// GetByID retrieves an order; withItems preloads items and their products
	GetByID(ctx context.Context, id int64, withItems bool) (*domain.Order, error)

	// List retrieves orders newest first with the total count
	List(ctx context.Context, filter OrderFilter, offset, limit int) ([]domain.Order, int64, error)

	// MarkPaid flips an unpaid order to paid, reporting whether a row changed
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error)

	// Items retrieves the items of an order
	Items(ctx context.Context, orderID int64) ([]domain.OrderItem, error)

	// CountItemsByProduct counts items referencing a product
	CountItemsByProduct(ctx context.Context, productID int64) (int64, error)

	// DeleteItemsByProduct removes items referencing a product and returns the
	// ids of the orders they belonged to
	DeleteItemsByProduct(ctx context.Context, productID int64) ([]int64, int64, error)

	// DeleteIfEmpty removes each listed order that has no items left
	DeleteIfEmpty(ctx context.Context, orderIDs []int64) (int64, error)

	// Delete removes an order and its items
	Delete(ctx context.Context, id int64) error

	// Counts returns order counters per status
	Counts(ctx context.Context) (StatusCounts, error)
}

var _ OrderRepository = (*GormOrderRepository)(nil)

// GormOrderRepository is the GORM implementation of OrderRepository
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Create(order).Error; err != nil {
		return translate(err, "create order")
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	return translate(db.Omit("Product").Create(&items).Error, "create order %d items", order.ID)
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64, withItems bool) (*domain.Order, error) {
	var order domain.Order
	query := r.db.WithContext(ctx)
	if withItems {
		query = query.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).Preload("Items.Product")
	}
	if err := query.First(&order, id).Error; err != nil {
		return nil, translate(err, "order %d", id)
	}
	return &order, nil
}

func (r *GormOrderRepository) List(ctx context.Context, filter OrderFilter, offset, limit int) ([]domain.Order, int64, error) {
	offset, limit = clampPage(offset, limit)
	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count orders")
	}

	var orders []domain.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	return orders, total, translate(err, "list orders")
}

func (r *GormOrderRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderStatusUnpaid).
		Updates(map[string]interface{}{
			"status":  domain.OrderStatusPaid,
			"paid_at": paidAt,
		})
	if res.Error != nil {
		return false, translate(res.Error, "mark order %d paid", id)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormOrderRepository) Items(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, translate(err, "order %d items", orderID)
}

func (r *GormOrderRepository) CountItemsByProduct(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, translate(err, "count items of product %d", productID)
}

func (r *GormOrderRepository) DeleteItemsByProduct(ctx context.Context, productID int64) ([]int64, int64, error) {
	db := r.db.WithContext(ctx)
	var orderIDs []int64
	if err := db.Model(&domain.OrderItem{}).
		Where("product_id = ?", productID).
		Distinct().
		Pluck("order_id", &orderIDs).Error; err != nil {
		return nil, 0, translate(err, "orders of product %d", productID)
	}
	res := db.Where("product_id = ?", productID).Delete(&domain.OrderItem{})
	if res.Error != nil {
		return nil, 0, translate(res.Error, "delete items of product %d", productID)
	}
	return orderIDs, res.RowsAffected, nil
}

func (r *GormOrderRepository) DeleteIfEmpty(ctx context.Context, orderIDs []int64) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	res := db.
		Where("id IN ?", orderIDs).
		Where("NOT EXISTS (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.OrderItem{}).
			Select("1").
			Where("order_item.order_id = orders.id")).
		Delete(&domain.Order{})
	return res.RowsAffected, translate(res.Error, "delete empty orders")
}

func (r *GormOrderRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
		return translate(err, "delete order %d items", id)
	}
	res := db.Delete(&domain.Order{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete order %d", id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("order %d", id)
	}
	return nil
}

func (r *GormOrderRepository) Counts(ctx context.Context) (StatusCounts, error) {
	var rows []struct {
		Status domain.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StatusCounts{}, translate(err, "count orders")
	}
	var counts StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case domain.OrderStatusPaid:
			counts.Paid = row.Count
		case domain.OrderStatusUnpaid:
			counts.Unpaid = row.Count
		}
	}
	return counts, nil
}
