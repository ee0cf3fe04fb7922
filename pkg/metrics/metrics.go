package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Checkout groups the checkout counters. A nil *Checkout records nothing.
type Checkout struct {
	Total               *prometheus.CounterVec
	Duration            prometheus.Histogram
	Retries             prometheus.Counter
	CleanupFailures     prometheus.Counter
	ReservationFailures *prometheus.CounterVec
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	m := &Checkout{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by final outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "End-to-end checkout latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_retries_total",
			Help:      "Checkout attempts re-run after a transient storage error.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_cleanup_failures_total",
			Help:      "Carts left uncleared after a committed checkout.",
		}),
		ReservationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservation_failures_total",
			Help:      "Rejected stock reservations by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.Total, m.Duration, m.Retries, m.CleanupFailures, m.ReservationFailures)
	return m
}

func (m *Checkout) Observe(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Total.WithLabelValues(outcome).Inc()
	m.Duration.Observe(time.Since(started).Seconds())
}

func (m *Checkout) Retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Checkout) CleanupFailed() {
	if m == nil {
		return
	}
	m.CleanupFailures.Inc()
}

func (m *Checkout) ReservationFailed(reason string) {
	if m == nil {
		return
	}
	m.ReservationFailures.WithLabelValues(reason).Inc()
}

type ServerMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, Latency: latency}
}

// Middleware records one sample per request, labelled by the matched route.
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.Latency.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
