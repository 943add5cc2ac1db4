package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockroom"

var (
	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders created by checkout.",
	})
	OrdersPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_paid_total",
		Help:      "Total number of orders settled.",
	})
	CheckoutFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Checkouts rejected, by reason.",
	}, []string{"reason"})
	StockClamped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_clamped_total",
		Help:      "Order lines settled against less stock than ordered.",
	})

	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(OrdersCreated, OrdersPaid, CheckoutFailures, StockClamped, requests, latency)
}

// ObserveRequest records one served HTTP request
func ObserveRequest(route string, status int, elapsed time.Duration) {
	requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	latency.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
