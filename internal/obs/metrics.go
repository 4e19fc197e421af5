package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"artledger.org/internal/chain"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "Whether the service considers itself ready (1) or not (0).",
	})

	artworksMinted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artledger_artworks_minted_total",
		Help: "Artwork tokens minted.",
	})

	verificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artledger_verifications_created_total",
		Help: "Content-hash verification records created.",
	})

	listingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artledger_listings_created_total",
		Help: "Marketplace listings created.",
	})

	salesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artledger_sales_completed_total",
		Help: "Marketplace sales settled.",
	})

	saleVolume = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artledger_sale_volume_minor_units_total",
		Help: "Settled sale volume in native minor units.",
	})
)

// Init registers all service metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
		artworksMinted, verificationsCreated, listingsCreated, salesCompleted, saleVolume,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

func CountMint()         { artworksMinted.Inc() }
func CountVerification() { verificationsCreated.Inc() }
func CountListing()      { listingsCreated.Inc() }

// CountSale records a settled sale and its volume.
func CountSale(price chain.Money) {
	salesCompleted.Inc()
	saleVolume.Add(float64(price))
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
