package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersExposed(t *testing.T) {
	before := testutil.ToFloat64(CheckoutFailures.WithLabelValues("empty_cart"))
	CheckoutFailures.WithLabelValues("empty_cart").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CheckoutFailures.WithLabelValues("empty_cart")))

	ObserveRequest("/api/health", http.StatusOK, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockroom_checkout_failures_total")
	assert.Contains(t, rec.Body.String(), `stockroom_http_requests_total{route="/api/health",status="200"}`)
}
