// Package metrics provides Prometheus instrumentation for the market engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsTotal counts bets placed, partitioned by bet type.
	BetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sipmarket_bets_total",
		Help: "Total number of bets placed",
	}, []string{"type"})

	// BetLimitRejections counts bets rejected by the bet limiter, by reason.
	BetLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sipmarket_bet_limit_rejections_total",
		Help: "Bets rejected by the bet limiter",
	}, []string{"reason"})

	// RoundsTotal counts market days played.
	RoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sipmarket_rounds_total",
		Help: "Total number of market rounds played",
	})

	// RoundLatency tracks how long a round takes to reduce and persist.
	RoundLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sipmarket_round_latency_seconds",
		Help:    "Round processing latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// EventCardsFlipped counts event cards revealed, by card type.
	EventCardsFlipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sipmarket_event_cards_flipped_total",
		Help: "Event cards revealed on the board",
	}, []string{"type"})

	// ActiveGames tracks games currently in progress.
	ActiveGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sipmarket_active_games",
		Help: "Number of games in progress",
	})

	// GamesFinished counts games that reached the board edge.
	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sipmarket_games_finished_total",
		Help: "Games finished",
	})

	// SipsSettled tracks sips handed out and drunk at settlement.
	SipsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sipmarket_sips_settled_total",
		Help: "Sips resolved at settlement",
	}, []string{"direction"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sipmarket_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sipmarket_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sipmarket_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Game codes are in the URL; label by route pattern instead.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
