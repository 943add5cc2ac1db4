package repository

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize caps every paged query
const MaxPageSize = 500

// translate maps gorm's not-found error into the domain taxonomy and wraps
// everything else with the operation description.
func translate(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf(format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

// likeFilter applies a case-insensitive substring match on the given columns
func likeFilter(db *gorm.DB, keyword string, columns ...string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(columns) == 0 {
		return db
	}
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
		for _, col := range columns {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+keyword+"%")
		}
	} else {
		for _, col := range columns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(keyword)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

// clampPage normalizes offset and limit
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}
