package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
)

type cartItemPayload struct {
	ProductID int64 `json:"product_id,string" validate:"required"`
	Quantity  int   `json:"quantity"`
}

type cartLineView struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func registerCartRoutes() {
	webserver.ApiGET("/cart", viewCart)
	webserver.ApiDELETE("/cart", clearCart)
	webserver.ApiPOST("/cart/items", addCartItem)
	webserver.ApiDELETE("/cart/items/:product_id", removeCartItem)
}

func sessionCart(c echo.Context) *inventory.Cart {
	return GetAppContext(c).Carts().Get(webserver.CurrentUser(c).Sid)
}

func viewCart(c echo.Context) error {
	carts := GetAppContext(c).Carts()
	cart := sessionCart(c)

	lines := make([]cartLineView, 0, cart.Len())
	total := 0
	for p, qty := range carts.Materialize(c.Request().Context(), cart) {
		lines = append(lines, cartLineView{Product: p, Quantity: qty})
		total += qty
	}
	return ok(c, map[string]interface{}{
		"items":       lines,
		"total_items": total,
	})
}

func addCartItem(c echo.Context) error {
	var payload cartItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "product_id is required", nil)
	}

	cart := sessionCart(c)
	qty, err := GetAppContext(c).Carts().Add(c.Request().Context(), cart, payload.ProductID, payload.Quantity)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]interface{}{
		"product_id":  strconv.FormatInt(payload.ProductID, 10),
		"quantity":    qty,
		"total_items": cart.TotalItemCount(),
	})
}

func removeCartItem(c echo.Context) error {
	id, err := parseIDParam(c, "product_id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	cart := sessionCart(c)
	cart.Remove(id)
	return ok(c, map[string]interface{}{"total_items": cart.TotalItemCount()})
}

func clearCart(c echo.Context) error {
	sessionCart(c).Clear()
	return ok(c, map[string]interface{}{"total_items": 0})
}
