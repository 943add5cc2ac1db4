package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/idempotency"
	"go.uber.org/zap"
)

func registerOrderRoutes() {
	webserver.ApiPOST("/orders", checkout)
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPOST("/orders/:id/pay", payOrder)
}

func checkout(c echo.Context) error {
	appCtx := GetAppContext(c)
	user := webserver.CurrentUser(c)
	ctx := c.Request().Context()

	key := idempotency.Key(c.Request())
	if key != "" {
		key = idempotency.ScopedKey(user.UserID, key)
		claimed, err := appCtx.Idempotency().Claim(ctx, key, idempotency.DefaultTTL)
		if err != nil {
			return handleError(c, err)
		}
		if !claimed {
			return fail(c, http.StatusConflict, "DUPLICATE_REQUEST", "This checkout was already submitted", nil)
		}
	}

	res, err := appCtx.Checkout().Checkout(ctx, sessionCart(c), user.UserID)
	if err != nil {
		if key != "" {
			if rerr := appCtx.Idempotency().Release(ctx, key); rerr != nil {
				zap.L().Warn("release idempotency key", zap.Error(rerr))
			}
		}
		return handleError(c, err)
	}
	logOperation(c, "order-create", fmt.Sprintf("order %d with %d items", res.Order.ID, len(res.Items)))
	return created(c, res)
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	q := inventory.OrderQuery{
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
		Status: domain.OrderStatus(strings.TrimSpace(c.QueryParam("status"))),
	}
	var err error
	if q.From, err = parseDateParam(c.QueryParam("from"), false); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid from date", err.Error())
	}
	if q.To, err = parseDateParam(c.QueryParam("to"), true); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid to date", err.Error())
	}

	rows, total, err := GetAppContext(c).Orders().List(c.Request().Context(), q)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

// parseDateParam parses a date filter in local time. A bare date used as an
// upper bound covers that whole day.
func parseDateParam(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}, err
	}
	if upper && len(s) <= len("2006-01-02") {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	order, err := GetAppContext(c).Orders().Get(c.Request().Context(), id)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, order)
}

func payOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	res, err := GetAppContext(c).Orders().MarkPaid(c.Request().Context(), id)
	if err != nil {
		return handleError(c, err)
	}
	if !res.AlreadyPaid {
		logOperation(c, "order-pay", fmt.Sprintf("order %d paid", id))
	}
	return ok(c, res)
}
