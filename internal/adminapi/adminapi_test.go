package adminapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/app"
	"github.com/talkincode/stockroom/internal/testutil"
	"github.com/talkincode/stockroom/internal/webserver"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	raw     []byte
}

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T) (*apiClient, *app.Application) {
	t.Helper()
	Init()
	cfg := config.DefaultAppConfig()
	cfg.Web.LoginRate = 1000
	a := app.NewApplication(cfg)
	a.OverrideDB(testutil.NewTestDB(t))

	ts := httptest.NewServer(webserver.NewAdminServer(cfg, a).Handler())
	t.Cleanup(ts.Close)
	return newClient(t, ts.URL), a
}

func newClient(t *testing.T, base string) *apiClient {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: base, http: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body interface{}, headers ...string) (int, envelope) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var env envelope
	if json.Valid(raw) {
		require.NoError(c.t, json.Unmarshal(raw, &env))
	}
	env.raw = raw
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (c *apiClient) login(username, password string) {
	c.t.Helper()
	status, env := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "password": password, "confirm_password": password,
	})
	require.Equal(c.t, http.StatusCreated, status, string(env.raw))
	status, env = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(c.t, http.StatusOK, status, string(env.raw))
}

func TestAuthFlow(t *testing.T) {
	client, _ := newTestServer(t)

	status, env := client.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	status, env = client.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ab", "password": "secret1", "confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Error)

	client.login("keeper1", "secret1")

	status, env = client.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "keeper1", "password": "secret1", "confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error)

	other := newClient(t, client.base)
	status, env = other.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "keeper1", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	status, env = client.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
		Orders struct {
			Total int64 `json:"total"`
		} `json:"orders"`
	}](t, env.Data)
	assert.Equal(t, "keeper1", profile.User.Username)
	assert.Equal(t, "storekeeper", profile.User.Role)

	status, env = client.do(http.MethodPost, "/api/auth/delete-account", nil)
	assert.Equal(t, http.StatusConflict, status, "last account stays")

	second := newClient(t, client.base)
	second.login("keeper2", "secret2")
	secondDevice := newClient(t, client.base)
	status, _ = secondDevice.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "keeper2", "password": "secret2",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = secondDevice.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = second.do(http.MethodPost, "/api/auth/delete-account", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = second.do(http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, env = secondDevice.do(http.MethodPost, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "other sessions of a deleted account are rejected")
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	status, _ = client.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = client.do(http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type productView struct {
	ID       string `json:"id"`
	Article  string `json:"article"`
	Quantity int    `json:"quantity"`
}

func TestWarehouseFlow(t *testing.T) {
	client, _ := newTestServer(t)
	client.login("keeper1", "secret1")

	status, env := client.do(http.MethodPost, "/api/products", map[string]interface{}{
		"article": "KT-6001", "name": "Electric kettle", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, status, string(env.raw))
	product := decode[struct {
		Product productView `json:"product"`
	}](t, env.Data).Product

	status, env = client.do(http.MethodPost, "/api/products", map[string]interface{}{
		"article": "KT-6001", "name": "ignored", "quantity": "0",
	})
	require.Equal(t, http.StatusOK, status)

	status, env = client.do(http.MethodPost, "/api/products", map[string]interface{}{
		"article": "KT-6001", "name": "Electric kettle", "quantity": "many",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Error)

	status, env = client.do(http.MethodGet, "/api/products?page=1&perPage=5", nil)
	require.Equal(t, http.StatusOK, status)
	meta := decode[PageMeta](t, env.Meta)
	assert.EqualValues(t, 1, meta.Total)
	assert.False(t, meta.HasMore)

	status, env = client.do(http.MethodGet, "/api/products/123", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// cart
	status, env = client.do(http.MethodPost, "/api/cart/items", map[string]interface{}{
		"product_id": product.ID, "quantity": 4,
	})
	require.Equal(t, http.StatusOK, status, string(env.raw))
	status, env = client.do(http.MethodPost, "/api/cart/items", map[string]interface{}{
		"product_id": product.ID, "quantity": 7,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error)

	status, env = client.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	cart := decode[struct {
		TotalItems int `json:"total_items"`
	}](t, env.Data)
	assert.Equal(t, 4, cart.TotalItems)

	// checkout
	status, env = client.do(http.MethodPost, "/api/orders", nil, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, status, string(env.raw))
	order := decode[struct {
		Order struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	}](t, env.Data).Order
	assert.Equal(t, "unpaid", order.Status)

	status, env = client.do(http.MethodPost, "/api/orders", nil, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REQUEST", env.Error)

	status, env = client.do(http.MethodPost, "/api/orders", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_CART", env.Error)

	status, env = client.do(http.MethodGet, "/api/orders?status=unpaid&to=2999-01-01", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, decode[PageMeta](t, env.Meta).Total)

	status, env = client.do(http.MethodGet, "/api/orders?from=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DATE", env.Error)

	// settle twice
	status, env = client.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[struct {
		AlreadyPaid bool `json:"already_paid"`
	}](t, env.Data).AlreadyPaid)

	status, env = client.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[struct {
		AlreadyPaid bool `json:"already_paid"`
	}](t, env.Data).AlreadyPaid)

	status, env = client.do(http.MethodGet, "/api/products/"+product.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 6, decode[productView](t, env.Data).Quantity)

	status, env = client.do(http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"status":"paid"`)

	// export
	status, env = client.do(http.MethodGet, "/api/products/export", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.raw), "id,article,name,quantity,created_at")
	assert.Contains(t, string(env.raw), "KT-6001,Electric kettle,6")

	// delete
	status, env = client.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error)

	status, env = client.do(http.MethodDelete, "/api/products/"+product.ID+"?cascade=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"removed_orders":1`)

	status, env = client.do(http.MethodGet, "/api/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = client.do(http.MethodGet, "/api/system/oprlogs?q=order", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, decode[PageMeta](t, env.Meta).Total)
}
