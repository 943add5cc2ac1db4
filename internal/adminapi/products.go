package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
)

type productPayload struct {
	Article  string      `json:"article"`
	Name     string      `json:"name"`
	Quantity interface{} `json:"quantity"`
}

type productCSV struct {
	ID        string `csv:"id"`
	Article   string `csv:"article"`
	Name      string `csv:"name"`
	Quantity  int    `csv:"quantity"`
	CreatedAt string `csv:"created_at"`
}

// registerProductRoutes registers catalog endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/export", exportProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", addOrRestockProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	q := strings.TrimSpace(c.QueryParam("q"))

	rows, total, err := GetAppContext(c).Catalog().List(c.Request().Context(), (page-1)*pageSize, pageSize, q)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetAppContext(c).Catalog().Get(c.Request().Context(), id)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, p)
}

func exportProducts(c echo.Context) error {
	rows, err := GetAppContext(c).Catalog().All(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	records := make([]productCSV, 0, len(rows))
	for _, p := range rows {
		records = append(records, productCSV{
			ID:        cast.ToString(p.ID),
			Article:   p.Article,
			Name:      p.Name,
			Quantity:  p.Quantity,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return handleError(c, err)
	}
	filename := fmt.Sprintf("products-%s.csv", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

func addOrRestockProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	qty, err := inventory.ParseQuantity(cast.ToString(payload.Quantity))
	if err != nil {
		return handleError(c, err)
	}

	p, isNew, err := GetAppContext(c).Catalog().AddOrRestock(c.Request().Context(), payload.Article, payload.Name, qty)
	if err != nil {
		return handleError(c, err)
	}
	if isNew {
		logOperation(c, "product-create", fmt.Sprintf("%s %q quantity %d", p.Article, p.Name, qty))
		return created(c, map[string]interface{}{"product": p, "created": true})
	}
	logOperation(c, "product-restock", fmt.Sprintf("%s +%d", p.Article, qty))
	return ok(c, map[string]interface{}{"product": p, "created": false})
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	cascade := cast.ToBool(c.QueryParam("cascade"))
	res, err := GetAppContext(c).Catalog().Delete(c.Request().Context(), id, cascade)
	if err != nil {
		return handleError(c, err)
	}
	logOperation(c, "product-delete", fmt.Sprintf("product %d cascade=%t items=%d orders=%d",
		id, cascade, res.RemovedItems, res.RemovedOrders))
	return ok(c, map[string]interface{}{
		"id":             cast.ToString(id),
		"removed_items":  res.RemovedItems,
		"removed_orders": res.RemovedOrders,
	})
}
