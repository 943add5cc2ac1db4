package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/events"
	"github.com/talkincode/stockroom/internal/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	catalog  *Catalog
	carts    *Carts
	orders   *OrderStore
	checkout *CheckoutWorkflow
	events   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{db: db, events: &events.Recorder{}}
	f.catalog = NewCatalog(db, 10)
	f.carts = NewCarts(f.catalog)
	f.catalog.OnDelete(f.carts.RemoveProduct)
	f.orders = NewOrderStore(db, 10)
	f.checkout = NewCheckoutWorkflow(db, f.orders, f.events)
	return f
}

func (f *fixture) product(t *testing.T, article string, qty int) *domain.Product {
	t.Helper()
	p, created, err := f.catalog.AddOrRestock(context.Background(), article, "Product "+article, qty)
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func (f *fixture) quantity(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
