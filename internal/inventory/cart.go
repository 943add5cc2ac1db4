package inventory

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"go.uber.org/zap"
)

// CartLine is one product entry of a cart
type CartLine struct {
	ProductID int64 `json:"product_id,string"`
	Quantity  int   `json:"quantity"`
}

// Cart maps product ids to requested quantities in insertion order.
// It belongs to one session and is never persisted.
type Cart struct {
	mu      sync.Mutex
	order   []int64
	qty     map[int64]int
	touched time.Time
}

func NewCart() *Cart {
	return &Cart{qty: make(map[int64]int), touched: time.Now()}
}

// Quantity returns the requested quantity of a product, 0 when absent
func (c *Cart) Quantity(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty[productID]
}

// Remove drops a product from the cart
func (c *Cart) Remove(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
	c.touched = time.Now()
}

func (c *Cart) remove(productID int64) bool {
	if _, ok := c.qty[productID]; !ok {
		return false
	}
	delete(c.qty, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Discard removes the given lines, as captured by Lines, from the cart.
// Quantities added after the snapshot stay in the cart.
func (c *Cart) Discard(lines []CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range lines {
		left := c.qty[line.ProductID] - line.Quantity
		if left > 0 {
			c.qty[line.ProductID] = left
			continue
		}
		c.remove(line.ProductID)
	}
	c.touched = time.Now()
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.qty = make(map[int64]int)
	c.touched = time.Now()
}

// TotalItemCount is the sum of all requested quantities
func (c *Cart) TotalItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, q := range c.qty {
		total += q
	}
	return total
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Lines returns a snapshot of the cart in insertion order
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]CartLine, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, CartLine{ProductID: id, Quantity: c.qty[id]})
	}
	return lines
}

func (c *Cart) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.touched)
}

// ProductLookup resolves product ids for cart validation
type ProductLookup interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

// Carts is the registry of live carts keyed by session id
type Carts struct {
	products ProductLookup

	mu    sync.Mutex
	carts map[string]*Cart
	now   func() time.Time
}

func NewCarts(products ProductLookup) *Carts {
	return &Carts{
		products: products,
		carts:    make(map[string]*Cart),
		now:      time.Now,
	}
}

// Get returns the cart of a session, creating it on first access
func (r *Carts) Get(sid string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sid]
	if !ok {
		cart = NewCart()
		r.carts[sid] = cart
	}
	cart.mu.Lock()
	cart.touched = r.now()
	cart.mu.Unlock()
	return cart
}

// Lookup returns the cart of a session without creating one
func (r *Carts) Lookup(sid string) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sid]
	return cart, ok
}

// Drop ends the cart of a session
func (r *Carts) Drop(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sid)
}

func (r *Carts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Add puts quantity more of a product into cart and returns the new line
// quantity. The line total may not exceed the on-hand quantity; carts of
// other sessions are not taken into account.
func (r *Carts) Add(ctx context.Context, cart *Cart, productID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, domain.NewValidationError("quantity", "must be greater than zero")
	}

	cart.mu.Lock()
	defer cart.mu.Unlock()

	product, err := r.products.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	inCart := cart.qty[productID]
	if quantity > product.Quantity-inCart {
		return 0, &domain.StockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Quantity,
			Requested: quantity,
			InCart:    inCart,
		}
	}
	if inCart == 0 {
		cart.order = append(cart.order, productID)
	}
	cart.qty[productID] = inCart + quantity
	cart.touched = r.now()
	return cart.qty[productID], nil
}

// Materialize yields the cart's products with their requested quantities.
// Lines whose product no longer exists are skipped.
func (r *Carts) Materialize(ctx context.Context, cart *Cart) iter.Seq2[domain.Product, int] {
	lines := cart.Lines()
	return func(yield func(domain.Product, int) bool) {
		for _, line := range lines {
			product, err := r.products.Get(ctx, line.ProductID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				zap.L().Warn("cart line lookup failed",
					zap.Int64("product_id", line.ProductID),
					zap.Error(err))
				continue
			}
			if !yield(*product, line.Quantity) {
				return
			}
		}
	}
}

// RemoveProduct drops a product from every live cart
func (r *Carts) RemoveProduct(productID int64) {
	r.mu.Lock()
	carts := make([]*Cart, 0, len(r.carts))
	for _, cart := range r.carts {
		carts = append(carts, cart)
	}
	r.mu.Unlock()

	removed := 0
	for _, cart := range carts {
		cart.mu.Lock()
		if cart.remove(productID) {
			removed++
		}
		cart.mu.Unlock()
	}
	if removed > 0 {
		zap.L().Info("product removed from carts",
			zap.Int64("product_id", productID),
			zap.Int("carts", removed))
	}
}

// EvictIdle drops carts untouched for longer than ttl
func (r *Carts) EvictIdle(ttl time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for sid, cart := range r.carts {
		if cart.idleSince(now) > ttl {
			delete(r.carts, sid)
			evicted++
		}
	}
	return evicted
}
