// Package metrics holds the Prometheus collectors of the service. Collectors
// are registered on the default registry so /metrics also carries the Go
// runtime and process metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "futdraw"

var (
	drawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "draws_total",
		Help:      "Total number of team draws by kind (draw, redraw, stateless).",
	}, []string{"kind"})

	drawPlayers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "draw_players",
		Help:      "Number of players per draw.",
		Buckets:   []float64{3, 6, 9, 12, 15, 18, 24, 30, 45},
	})

	drawSpread = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "draw_spread",
		Help:      "Difference between the strongest and weakest team total.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 60, 99},
	})

	drawsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "draws_rejected_total",
		Help:      "Draws refused because too few players were selected.",
	})

	rosterWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_writes_total",
		Help:      "Roster writes by operation.",
	}, []string{"op"})

	imageNormalize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "image_normalize_seconds",
		Help:      "Time spent decoding, scaling and encoding card photos.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	imageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_requests_total",
		Help:      "Image byte cache lookups by result (hit, miss).",
	}, []string{"result"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	streamClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Connected event stream clients by transport (sse, websocket).",
	}, []string{"transport"})
)

// RecordDraw counts one balancer run and observes its size and spread.
func RecordDraw(kind string, players, spread int) {
	drawsTotal.WithLabelValues(kind).Inc()
	drawPlayers.Observe(float64(players))
	drawSpread.Observe(float64(spread))
}

// RecordDrawRejected counts a draw refused for lack of players.
func RecordDrawRejected() {
	drawsRejected.Inc()
}

// RecordRosterWrite counts a roster write; op is save, delete or image.
func RecordRosterWrite(op string) {
	rosterWrites.WithLabelValues(op).Inc()
}

// ObserveImageNormalize records how long a normalization took.
func ObserveImageNormalize(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	imageNormalize.WithLabelValues(result).Observe(d.Seconds())
}

// RecordImageCache records a cache hit or miss.
func RecordImageCache(hit bool) {
	if hit {
		imageCache.WithLabelValues("hit").Inc()
		return
	}
	imageCache.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records one finished HTTP request.
func RecordHTTPRequest(endpoint, method, status string, d time.Duration) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
	httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(d.Seconds())
}

// StreamConnected adjusts the stream client gauge by delta.
func StreamConnected(transport string, delta int) {
	streamClients.WithLabelValues(transport).Add(float64(delta))
}
