package repository

import (
	"context"

	"github.com/talkincode/stockroom/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository handles database operations for catalog products
type ProductRepository interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByArticle retrieves a product by its unique article code
	GetByArticle(ctx context.Context, article string) (*domain.Product, error)

	// Create inserts a new product
	Create(ctx context.Context, p *domain.Product) error

	// Restock adds delta to the quantity of the product with the given article,
	// returning the number of rows touched. It touches nothing when the article
	// is unknown or the result would exceed domain.MaxQuantity.
	Restock(ctx context.Context, article string, delta int) (int64, error)

	// DecrementClamped subtracts qty from the product quantity, stopping at zero
	DecrementClamped(ctx context.Context, id int64, qty int) error

	// List retrieves products newest first with the total count
	List(ctx context.Context, offset, limit int, keyword string) ([]domain.Product, int64, error)

	// All retrieves the whole catalog ordered by article
	All(ctx context.Context) ([]domain.Product, error)

	// Delete removes a product
	Delete(ctx context.Context, id int64) error
}

var _ ProductRepository = (*GormProductRepository)(nil)

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based repository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "product %d", id)
	}
	return &p, nil
}

func (r *GormProductRepository) GetByArticle(ctx context.Context, article string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Where("article = ?", article).First(&p).Error; err != nil {
		return nil, translate(err, "product article %s", article)
	}
	return &p, nil
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "create product %s", p.Article)
}

func (r *GormProductRepository) Restock(ctx context.Context, article string, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("article = ? AND quantity <= ?", article, domain.MaxQuantity-delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return res.RowsAffected, translate(res.Error, "restock product %s", article)
}

func (r *GormProductRepository) DecrementClamped(ctx context.Context, id int64, qty int) error {
	return translate(r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", qty, qty)).Error,
		"decrement product %d", id)
}

func (r *GormProductRepository) List(ctx context.Context, offset, limit int, keyword string) ([]domain.Product, int64, error) {
	offset, limit = clampPage(offset, limit)
	query := likeFilter(r.db.WithContext(ctx).Model(&domain.Product{}), keyword, "name", "article")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count products")
	}

	var rows []domain.Product
	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, translate(err, "list products")
}

func (r *GormProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := r.db.WithContext(ctx).Order("article ASC").Find(&rows).Error
	return rows, translate(err, "list products")
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Product{}, id).Error, "delete product %d", id)
}
