// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PredictionsCreated   prometheus.Counter
	PredictionsConfirmed *prometheus.CounterVec // labeled by confirmation offset
	PredictionsExpired   prometheus.Counter
	SendsSucceeded       prometheus.Counter
	SendsFailed          prometheus.Counter
	EditsSucceeded       prometheus.Counter
	EditsFailed          prometheus.Counter
	EditsSkipped         prometheus.Counter
	RateLimitHits        prometheus.Counter
	DeliveryRetries      prometheus.Counter
	WebhookEvents        prometheus.Counter

	// Histograms (seconds)
	DeliveryDuration prometheus.Observer

	// Gauges
	QueueDepthGauge         prometheus.Gauge
	PendingPredictionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PredictionsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "predictions_created_total", Help: "Number of predictions created"})
		PredictionsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "predictions_confirmed_total", Help: "Number of predictions confirmed, by offset"}, []string{"offset"})
		PredictionsExpired = promauto.NewCounter(prometheus.CounterOpts{Name: "predictions_expired_total", Help: "Number of predictions expired without confirmation"})
		SendsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_sends_succeeded_total", Help: "Number of prediction messages sent"})
		SendsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_sends_failed_total", Help: "Number of prediction sends failed terminally"})
		EditsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_edits_succeeded_total", Help: "Number of prediction message edits applied"})
		EditsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_edits_failed_total", Help: "Number of prediction edits failed terminally"})
		EditsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_edits_skipped_total", Help: "Number of edits skipped because the prediction was never delivered"})
		RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_rate_limit_hits_total", Help: "Number of rate-limit responses from the messaging API"})
		DeliveryRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "delivery_retries_total", Help: "Number of delivery retries after backoff"})
		WebhookEvents = promauto.NewCounter(prometheus.CounterOpts{Name: "webhook_events_total", Help: "Number of webhook events accepted"})
		DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "delivery_duration_seconds", Help: "Duration of one delivery job including backoff", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "delivery_queue_depth", Help: "Current number of undelivered jobs"})
		PendingPredictionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "predictions_pending", Help: "Current number of open predictions"})
	})
}

// Nil-safe helpers so core code paths also work in tests that never call Init.

func IncPredictionsCreated() {
	if PredictionsCreated != nil {
		PredictionsCreated.Inc()
	}
}

func IncPredictionsConfirmed(offset int) {
	if PredictionsConfirmed != nil {
		PredictionsConfirmed.WithLabelValues(strconv.Itoa(offset)).Inc()
	}
}

func IncPredictionsExpired() {
	if PredictionsExpired != nil {
		PredictionsExpired.Inc()
	}
}

func IncSendsSucceeded() {
	if SendsSucceeded != nil {
		SendsSucceeded.Inc()
	}
}

func IncSendsFailed() {
	if SendsFailed != nil {
		SendsFailed.Inc()
	}
}

func IncEditsSucceeded() {
	if EditsSucceeded != nil {
		EditsSucceeded.Inc()
	}
}

func IncEditsFailed() {
	if EditsFailed != nil {
		EditsFailed.Inc()
	}
}

func IncEditsSkipped() {
	if EditsSkipped != nil {
		EditsSkipped.Inc()
	}
}

func IncRateLimitHits() {
	if RateLimitHits != nil {
		RateLimitHits.Inc()
	}
}

func IncDeliveryRetries() {
	if DeliveryRetries != nil {
		DeliveryRetries.Inc()
	}
}

func IncWebhookEvents() {
	if WebhookEvents != nil {
		WebhookEvents.Inc()
	}
}

// SetQueueDepth records the current number of undelivered jobs.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetPendingPredictions records the current number of open predictions.
func SetPendingPredictions(n int) {
	if PendingPredictionsGauge != nil {
		PendingPredictionsGauge.Set(float64(n))
	}
}

// ObserveDeliveryDuration records one delivery job's duration.
func ObserveDeliveryDuration(d time.Duration) {
	if DeliveryDuration != nil {
		DeliveryDuration.Observe(d.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
