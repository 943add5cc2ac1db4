package repository

import (
	"context"
	"time"

	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"gorm.io/gorm"
)

// OprLogRepository handles the operator audit trail
type OprLogRepository interface {
	// Create inserts a new audit log entry
	Create(ctx context.Context, log *domain.SysOprLog) error

	// DeleteOlderThan removes entries recorded before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

var _ OprLogRepository = (*GormOprLogRepository)(nil)

// GormOprLogRepository is the GORM implementation of OprLogRepository
type GormOprLogRepository struct {
	db *gorm.DB
}

// NewGormOprLogRepository creates a new GORM-based log repository
func NewGormOprLogRepository(db *gorm.DB) *GormOprLogRepository {
	return &GormOprLogRepository{db: db}
}

func (r *GormOprLogRepository) Create(ctx context.Context, log *domain.SysOprLog) error {
	if log.ID == 0 {
		log.ID = common.UUIDint64()
	}
	if log.OptTime.IsZero() {
		log.OptTime = time.Now()
	}
	return translate(r.db.WithContext(ctx).Create(log).Error, "create operation log")
}

func (r *GormOprLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("opt_time < ?", before).
		Delete(&domain.SysOprLog{})
	return res.RowsAffected, translate(res.Error, "purge operation log")
}
