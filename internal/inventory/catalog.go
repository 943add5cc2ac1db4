// Package inventory implements the product catalog, session carts, the
// order store and the checkout workflow that ties them together.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxArticleLen = 50
	maxNameLen    = 200
)

// DeleteResult reports what a product deletion removed besides the product
type DeleteResult struct {
	RemovedItems  int64 `json:"removed_items"`
	RemovedOrders int64 `json:"removed_orders"`
}

// Catalog owns product records
type Catalog struct {
	db       *gorm.DB
	pageSize int

	mu       sync.RWMutex
	onDelete []func(productID int64)
}

func NewCatalog(db *gorm.DB, pageSize int) *Catalog {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Catalog{db: db, pageSize: pageSize}
}

// OnDelete registers fn to run after a product deletion commits
func (c *Catalog) OnDelete(fn func(productID int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDelete = append(c.onDelete, fn)
}

// ParseQuantity converts form input into a quantity
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, domain.NewValidationError("quantity", "is required")
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		return 0, domain.NewValidationError("quantity", "must be a whole number")
	}
	return n, nil
}

// AddOrRestock increases the quantity of the product with the given article,
// or creates it when the article is new. The name only applies to new products.
func (c *Catalog) AddOrRestock(ctx context.Context, article, name string, quantity int) (*domain.Product, bool, error) {
	article = strings.TrimSpace(article)
	name = strings.TrimSpace(name)
	switch {
	case article == "":
		return nil, false, domain.NewValidationError("article", "is required")
	case len(article) > maxArticleLen:
		return nil, false, domain.NewValidationError("article", fmt.Sprintf("must be at most %d characters", maxArticleLen))
	case name == "":
		return nil, false, domain.NewValidationError("name", "is required")
	case len(name) > maxNameLen:
		return nil, false, domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	case quantity < 0:
		return nil, false, domain.NewValidationError("quantity", "must not be negative")
	case quantity > domain.MaxQuantity:
		return nil, false, domain.NewValidationError("quantity", fmt.Sprintf("must be at most %d", domain.MaxQuantity))
	}

	product, created, err := c.addOrRestock(ctx, article, name, quantity)
	if err != nil && created {
		// the insert lost a race against another request; the row exists now
		p, rerr := c.restock(ctx, article, quantity)
		if rerr == nil {
			return p, false, nil
		}
		if errors.Is(rerr, domain.ErrValidation) {
			return nil, false, rerr
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		zap.L().Info("product created",
			zap.Int64("product_id", product.ID),
			zap.String("article", article),
			zap.Int("quantity", quantity))
	}
	return product, created, nil
}

func (c *Catalog) addOrRestock(ctx context.Context, article, name string, quantity int) (product *domain.Product, created bool, err error) {
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewGormProductRepository(tx)
		n, err := products.Restock(ctx, article, quantity)
		if err != nil {
			return err
		}
		if n > 0 {
			product, err = products.GetByArticle(ctx, article)
			return err
		}
		existing, err := products.GetByArticle(ctx, article)
		if err == nil {
			if err := checkCapacity(existing, quantity); err != nil {
				return err
			}
			product = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		created = true
		product = &domain.Product{
			ID:       common.UUIDint64(),
			Article:  article,
			Name:     name,
			Quantity: quantity,
		}
		return products.Create(ctx, product)
	})
	return product, created, err
}

func (c *Catalog) restock(ctx context.Context, article string, quantity int) (product *domain.Product, err error) {
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewGormProductRepository(tx)
		n, err := products.Restock(ctx, article, quantity)
		if err != nil {
			return err
		}
		if product, err = products.GetByArticle(ctx, article); err != nil {
			return err
		}
		if n == 0 {
			return checkCapacity(product, quantity)
		}
		return nil
	})
	return product, err
}

// checkCapacity rejects a restock that would push p above domain.MaxQuantity
func checkCapacity(p *domain.Product, quantity int) error {
	if p.Quantity > domain.MaxQuantity-quantity {
		return domain.NewValidationError("quantity",
			fmt.Sprintf("restock would exceed %d units of %s", domain.MaxQuantity, p.Article))
	}
	return nil
}

// Get returns the product with the given id
func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return repository.NewGormProductRepository(c.db).GetByID(ctx, id)
}

// List returns a page of products newest first and the total count.
// A non-positive limit uses the configured page size.
func (c *Catalog) List(ctx context.Context, offset, limit int, keyword string) ([]domain.Product, int64, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	return repository.NewGormProductRepository(c.db).List(ctx, offset, limit, keyword)
}

// All returns every product ordered by article
func (c *Catalog) All(ctx context.Context) ([]domain.Product, error) {
	return repository.NewGormProductRepository(c.db).All(ctx)
}

// Delete removes a product. A product referenced by order items is only
// removed when cascade is set; its items go with it, and orders left without
// items are deleted too.
func (c *Catalog) Delete(ctx context.Context, id int64, cascade bool) (DeleteResult, error) {
	var result DeleteResult
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewGormProductRepository(tx)
		orders := repository.NewGormOrderRepository(tx)

		product, err := products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		refs, err := orders.CountItemsByProduct(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 && !cascade {
			return &domain.ConflictError{
				Message:    fmt.Sprintf("product %q is referenced by %d order items", product.Name, refs),
				References: refs,
			}
		}
		if refs > 0 {
			orderIDs, removed, err := orders.DeleteItemsByProduct(ctx, id)
			if err != nil {
				return err
			}
			result.RemovedItems = removed
			if result.RemovedOrders, err = orders.DeleteIfEmpty(ctx, orderIDs); err != nil {
				return err
			}
		}
		return products.Delete(ctx, id)
	})
	if err != nil {
		return DeleteResult{}, err
	}

	c.mu.RLock()
	listeners := c.onDelete
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(id)
	}

	zap.L().Info("product deleted",
		zap.Int64("product_id", id),
		zap.Bool("cascade", cascade),
		zap.Int64("removed_items", result.RemovedItems),
		zap.Int64("removed_orders", result.RemovedOrders))
	return result, nil
}
