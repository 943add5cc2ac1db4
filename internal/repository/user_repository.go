package repository

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles database operations for operator accounts
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.SysUser, error)
	GetByUsername(ctx context.Context, username string) (*domain.SysUser, error)
	Create(ctx context.Context, user *domain.SysUser) error
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

var _ UserRepository = (*GormUserRepository)(nil)

// GormUserRepository is the GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based repository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id int64) (*domain.SysUser, error) {
	var user domain.SysUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user %d", id)
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.SysUser, error) {
	var user domain.SysUser
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "user %s", username)
	}
	return &user, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.SysUser) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user %s", user.Username)
}

func (r *GormUserRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return translate(r.db.WithContext(ctx).
		Model(&domain.SysUser{}).
		Where("id = ?", id).
		Updates(updates).Error, "update user %d", id)
}

func (r *GormUserRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.SysUser{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete user %d", id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("user %d", id)
	}
	return nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SysUser{}).Count(&count).Error
	return count, translate(err, "count users")
}
