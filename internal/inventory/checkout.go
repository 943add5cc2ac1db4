package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/events"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/pkg/common"
	"github.com/talkincode/stockroom/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const publishTimeout = 5 * time.Second

// CheckoutResult is the outcome of converting a cart into an order
type CheckoutResult struct {
	Order    *domain.Order      `json:"order"`
	Items    []domain.OrderItem `json:"items"`
	Warnings []string           `json:"warnings"`
}

// Adjustment is the stock change applied to one product at settlement
type Adjustment struct {
	ProductID int64 `json:"product_id,string"`
	Ordered   int   `json:"ordered"`
	Before    int   `json:"before"`
	After     int   `json:"after"`
	Shortfall int   `json:"shortfall"`
}

// SettleResult is the outcome of marking an order paid
type SettleResult struct {
	Order       *domain.Order `json:"order"`
	AlreadyPaid bool          `json:"already_paid"`
	Adjustments []Adjustment  `json:"adjustments"`
}

// CheckoutWorkflow turns carts into unpaid orders and settles them.
// Checkout only checks stock; settlement deducts it, clamping at zero.
type CheckoutWorkflow struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewCheckoutWorkflow creates the workflow and attaches it to orders so that
// OrderStore.MarkPaid settles through it
func NewCheckoutWorkflow(db *gorm.DB, orders *OrderStore, publisher events.Publisher) *CheckoutWorkflow {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	w := &CheckoutWorkflow{db: db, publisher: publisher, now: time.Now}
	if orders != nil {
		orders.settle = w.Settle
	}
	return w
}

// Checkout converts cart into an unpaid order. Lines of deleted products are
// skipped with a warning; a line above the on-hand quantity aborts the whole
// order. The ordered lines leave the cart once the order is stored.
func (w *CheckoutWorkflow) Checkout(ctx context.Context, cart *Cart, actorID int64) (*CheckoutResult, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		metrics.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, domain.ErrEmptyCart
	}

	var result *CheckoutResult
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewGormProductRepository(tx)
		orders := repository.NewGormOrderRepository(tx)

		res := &CheckoutResult{
			Order: &domain.Order{
				ID:        common.UUIDint64(),
				Status:    domain.OrderStatusUnpaid,
				CreatedBy: actorID,
			},
			Items:    make([]domain.OrderItem, 0, len(lines)),
			Warnings: []string{},
		}
		for _, line := range lines {
			product, err := products.GetByID(ctx, line.ProductID)
			if errors.Is(err, domain.ErrNotFound) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("product %d no longer exists and was left out of the order", line.ProductID))
				continue
			}
			if err != nil {
				return err
			}
			if line.Quantity <= 0 {
				return domain.NewValidationError("quantity", "must be greater than zero")
			}
			if product.Quantity < line.Quantity {
				return &domain.StockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Quantity,
					Requested: line.Quantity,
				}
			}
			res.Items = append(res.Items, domain.OrderItem{
				ID:        common.UUIDint64(),
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Product:   product,
			})
		}
		if len(res.Items) == 0 {
			return domain.ErrEmptyCart
		}
		if err := orders.Create(ctx, res.Order, res.Items); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	cart.Discard(lines)
	result.Order.Items = result.Items
	metrics.OrdersCreated.Inc()
	zap.L().Info("order created",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("actor_id", actorID),
		zap.Int("items", len(result.Items)),
		zap.Int("skipped", len(result.Warnings)))
	w.publish(ctx, events.NewOrderEvent(events.OrderCreated, result.Order, result.Items))
	return result, nil
}

// Settle marks an order paid and deducts its items from stock. Settling a
// paid order changes nothing and reports AlreadyPaid. Stock never drops
// below zero; shortfalls are reported per product.
func (w *CheckoutWorkflow) Settle(ctx context.Context, orderID int64) (*SettleResult, error) {
	var (
		result SettleResult
		items  []domain.OrderItem
	)
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewGormProductRepository(tx)
		orders := repository.NewGormOrderRepository(tx)
		result = SettleResult{Adjustments: []Adjustment{}}

		order, err := orders.GetByID(ctx, orderID, false)
		if err != nil {
			return err
		}
		if order.IsPaid() {
			result.Order = order
			result.AlreadyPaid = true
			return nil
		}

		paidAt := w.now()
		changed, err := orders.MarkPaid(ctx, orderID, paidAt)
		if err != nil {
			return err
		}
		if !changed {
			// settled by a concurrent request
			if result.Order, err = orders.GetByID(ctx, orderID, false); err != nil {
				return err
			}
			result.AlreadyPaid = true
			return nil
		}

		if items, err = orders.Items(ctx, orderID); err != nil {
			return err
		}
		for _, item := range items {
			product, err := products.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := products.DecrementClamped(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			adj := Adjustment{
				ProductID: item.ProductID,
				Ordered:   item.Quantity,
				Before:    product.Quantity,
				After:     product.Quantity - item.Quantity,
			}
			if adj.After < 0 {
				adj.Shortfall = -adj.After
				adj.After = 0
			}
			result.Adjustments = append(result.Adjustments, adj)
		}

		order.Status = domain.OrderStatusPaid
		order.PaidAt = &paidAt
		order.Items = items
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyPaid {
		zap.L().Info("order already paid", zap.Int64("order_id", orderID))
		return &result, nil
	}

	metrics.OrdersPaid.Inc()
	for _, adj := range result.Adjustments {
		if adj.Shortfall > 0 {
			metrics.StockClamped.Inc()
			zap.L().Warn("stock clamped at settlement",
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", adj.ProductID),
				zap.Int("shortfall", adj.Shortfall))
		}
	}
	zap.L().Info("order paid", zap.Int64("order_id", orderID), zap.Int("items", len(items)))
	w.publish(ctx, events.NewOrderEvent(events.OrderPaid, result.Order, items))
	return &result, nil
}

func (w *CheckoutWorkflow) publish(ctx context.Context, evt events.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := w.publisher.Publish(ctx, evt); err != nil {
		zap.L().Error("publish order event failed",
			zap.String("type", evt.Type),
			zap.Int64("order_id", evt.OrderID),
			zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_line"
	default:
		return "error"
	}
}
