package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/webserver"
)

func registerOprLogRoutes() {
	webserver.ApiGET("/system/oprlogs", listOprLogs)
}

// listOprLogs returns the audit trail newest first, optionally filtered by
// operator or action
func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.SysOprLog{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("opr_name ILIKE ? OR opt_action ILIKE ?", "%"+q+"%", "%"+q+"%")
		} else {
			db = db.Where("LOWER(opr_name) LIKE ? OR LOWER(opt_action) LIKE ?", "%"+strings.ToLower(q)+"%", "%"+strings.ToLower(q)+"%")
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	var logs []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page-1)*pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	return paged(c, logs, total, page, pageSize)
}
