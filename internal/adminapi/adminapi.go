// Package adminapi implements the JSON handlers of the warehouse API.
package adminapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/app"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var initOnce sync.Once

// Init registers every API route with the web server
func Init() {
	initOnce.Do(func() {
		registerAuthRoutes()
		registerProductRoutes()
		registerCartRoutes()
		registerOrderRoutes()
		registerOprLogRoutes()
	})
}

// PageMeta describes one page of a listing
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	HasMore  bool  `json:"has_more"`
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, webserver.Response{Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, webserver.Response{Data: data})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, webserver.ErrorResponse{Error: code, Message: message, Details: details})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, webserver.Response{
		Data: data,
		Meta: PageMeta{
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			HasMore:  int64(page*pageSize) < total,
		},
	})
}

// parsePagination reads page and perPage (or legacy pageSize)
func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage := c.QueryParam("perPage")
	if perPage == "" {
		perPage = c.QueryParam("pageSize")
	}
	pageSize := cast.ToInt(perPage)
	if pageSize <= 0 {
		pageSize = GetAppContext(c).Config().Web.PageSize
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// handleError maps a domain error class to its response
func handleError(c echo.Context, err error) error {
	var (
		ve *domain.ValidationError
		se *domain.StockError
		ce *domain.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		var details interface{}
		if ve.Field != "" {
			details = map[string]string{"field": ve.Field}
		}
		return fail(c, http.StatusBadRequest, "VALIDATION", ve.Error(), details)
	case errors.Is(err, domain.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Cart is empty", nil)
	case errors.As(err, &se):
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", se.Error(), map[string]interface{}{
			"product_id": strconv.FormatInt(se.ProductID, 10),
			"name":       se.Name,
			"available":  se.Available,
			"requested":  se.Requested,
			"in_cart":    se.InCart,
		})
	case errors.As(err, &ce):
		return fail(c, http.StatusConflict, "CONFLICT", ce.Error(), map[string]interface{}{"references": ce.References})
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// logOperation records a mutation in the audit trail
func logOperation(c echo.Context, action, desc string) {
	operator := ""
	if u := webserver.CurrentUser(c); u != nil {
		operator = u.Username
	}
	GetAppContext(c).LogOperation(c.Request().Context(), operator, c.RealIP(), action, desc)
}
