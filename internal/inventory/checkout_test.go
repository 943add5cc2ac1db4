package inventory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/events"
)

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Checkout(context.Background(), f.carts.Get("sid"), 1)
	assert.True(t, errors.Is(err, domain.ErrEmptyCart))
	assert.EqualValues(t, 0, f.countRows(t, &domain.Order{}))
	assert.Empty(t, f.events.Events())
}

func TestCheckoutAndSettleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 10)

	cart := f.carts.Get("sid")
	_, err := f.carts.Add(ctx, cart, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.TotalItemCount())

	res, err := f.checkout.Checkout(ctx, cart, 77)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusUnpaid, res.Order.Status)
	assert.EqualValues(t, 77, res.Order.CreatedBy)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 4, res.Items[0].Quantity)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, cart.Len(), "cart cleared after checkout")
	assert.Equal(t, 10, f.quantity(t, a.ID), "checkout does not deduct stock")

	settled, err := f.orders.MarkPaid(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.False(t, settled.AlreadyPaid)
	assert.Equal(t, domain.OrderStatusPaid, settled.Order.Status)
	require.NotNil(t, settled.Order.PaidAt)
	assert.Equal(t, []Adjustment{{ProductID: a.ID, Ordered: 4, Before: 10, After: 6}}, settled.Adjustments)
	assert.Equal(t, 6, f.quantity(t, a.ID))

	again, err := f.checkout.Settle(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPaid)
	assert.Empty(t, again.Adjustments)
	assert.Equal(t, 6, f.quantity(t, a.ID))

	stored, err := f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "A-1", stored.Items[0].Product.Article)

	var kinds []string
	for _, evt := range f.events.Events() {
		kinds = append(kinds, evt.Type)
	}
	assert.Equal(t, []string{events.OrderCreated, events.OrderPaid}, kinds)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 10)
	b := f.product(t, "B-1", 5)

	cart := f.carts.Get("sid")
	_, err := f.carts.Add(ctx, cart, a.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, cart, b.ID, 5)
	require.NoError(t, err)

	// stock drops after the line was added
	require.NoError(t, f.db.Model(&domain.Product{}).Where("id = ?", b.ID).Update("quantity", 3).Error)

	_, err = f.checkout.Checkout(ctx, cart, 0)
	require.Error(t, err)
	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, b.ID, se.ProductID)
	assert.Equal(t, 3, se.Available)
	assert.Equal(t, 5, se.Requested)

	assert.EqualValues(t, 0, f.countRows(t, &domain.Order{}))
	assert.EqualValues(t, 0, f.countRows(t, &domain.OrderItem{}))
	assert.Equal(t, 2, cart.Len(), "cart kept on failure")
}

func TestCheckoutSkipsMissingProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 10)
	b := f.product(t, "B-1", 10)

	cart := f.carts.Get("sid")
	_, _ = f.carts.Add(ctx, cart, a.ID, 1)
	_, _ = f.carts.Add(ctx, cart, b.ID, 2)
	require.NoError(t, f.db.Delete(&domain.Product{}, a.ID).Error)

	res, err := f.checkout.Checkout(ctx, cart, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, b.ID, res.Items[0].ProductID)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no longer exists")
}

func TestCheckoutRejectsNonPositiveLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 10)

	cart := f.carts.Get("sid")
	cart.order = append(cart.order, a.ID)
	cart.qty[a.ID] = math.MinInt

	_, err := f.checkout.Checkout(ctx, cart, 0)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.EqualValues(t, 0, f.countRows(t, &domain.Order{}))
	assert.EqualValues(t, 0, f.countRows(t, &domain.OrderItem{}))
	assert.Equal(t, 10, f.quantity(t, a.ID))
}

func TestCheckoutAllLinesMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 10)

	cart := f.carts.Get("sid")
	_, _ = f.carts.Add(ctx, cart, a.ID, 1)
	require.NoError(t, f.db.Delete(&domain.Product{}, a.ID).Error)

	_, err := f.checkout.Checkout(ctx, cart, 0)
	assert.True(t, errors.Is(err, domain.ErrEmptyCart))
	assert.EqualValues(t, 0, f.countRows(t, &domain.Order{}))
}

func TestSettleClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 5)

	// two sessions both order the full stock
	var orders []int64
	for _, sid := range []string{"s1", "s2"} {
		cart := f.carts.Get(sid)
		_, err := f.carts.Add(ctx, cart, a.ID, 4)
		require.NoError(t, err)
		res, err := f.checkout.Checkout(ctx, cart, 0)
		require.NoError(t, err)
		orders = append(orders, res.Order.ID)
	}

	_, err := f.checkout.Settle(ctx, orders[0])
	require.NoError(t, err)
	assert.Equal(t, 1, f.quantity(t, a.ID))

	res, err := f.checkout.Settle(ctx, orders[1])
	require.NoError(t, err)
	assert.Equal(t, []Adjustment{{ProductID: a.ID, Ordered: 4, Before: 1, After: 0, Shortfall: 3}}, res.Adjustments)
	assert.Equal(t, 0, f.quantity(t, a.ID))
}

func TestSettleMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Settle(context.Background(), 4242)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOrderStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A-1", 100)

	base := time.Now().Add(-time.Hour)
	var ids []int64
	for i := 0; i < 3; i++ {
		order := &domain.Order{CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, f.orders.Create(ctx, order, []domain.OrderItem{{ProductID: a.ID, Quantity: i + 1}}))
		assert.Equal(t, domain.OrderStatusUnpaid, order.Status)
		ids = append(ids, order.ID)
	}
	assert.True(t, errors.Is(f.orders.Create(ctx, &domain.Order{}, nil), domain.ErrEmptyCart))
	assert.True(t, errors.Is(f.orders.Create(ctx, &domain.Order{}, []domain.OrderItem{{ProductID: a.ID}}), domain.ErrValidation))

	_, err := f.orders.MarkPaid(ctx, ids[1])
	require.NoError(t, err)

	list, total, err := f.orders.List(ctx, OrderQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{list[0].ID, list[1].ID, list[2].ID})

	list, total, err = f.orders.List(ctx, OrderQuery{Status: domain.OrderStatusPaid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ids[1], list[0].ID)

	list, _, err = f.orders.List(ctx, OrderQuery{From: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[2], list[0].ID)

	_, _, err = f.orders.List(ctx, OrderQuery{Status: "cancelled"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	counts, err := f.orders.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts.Total)
	assert.EqualValues(t, 1, counts.Paid)
	assert.EqualValues(t, 2, counts.Unpaid)
}
