package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                      sync.Once
	metricsRouter             *chi.Mux
	ledgerClientLatency       *prometheus.HistogramVec
	tokenClientLatency        *prometheus.HistogramVec
	dbLatency                 *prometheus.HistogramVec
	eventProcessingDuration   *prometheus.HistogramVec
	adminRequestDuration      *prometheus.HistogramVec
	txConfirmLatency          *prometheus.HistogramVec
	inFlightActionsGauge      prometheus.Gauge
	queuePublishErrorCounter  prometheus.Counter
	viewInvalidationCounter   *prometheus.CounterVec
	eligibleAccountsGauge     prometheus.Gauge
	distributionProgressGauge prometheus.Gauge
)

// Collectors are registered at package load so recorders are safe to call
// from any component regardless of startup order. Init only starts the
// scrape endpoint.
func init() {
	registerMetrics()
}

// Init starts the metrics server.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	ledgerClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_client_latency_seconds",
			Help:    "Histogram of ledger client call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	tokenClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "token_client_latency_seconds",
			Help:    "Histogram of token client call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	eventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_event_processing_duration_seconds",
			Help:    "Ledger event processing duration in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"event_type", "status"},
	)

	adminRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_request_duration_seconds",
			Help:    "Histogram of admin API request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "path", "status"},
	)

	txConfirmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tx_confirm_latency_seconds",
			Help:    "Time between broadcast and confirmation of a mutating action.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"action", "status"},
	)

	inFlightActionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "in_flight_actions",
			Help: "Number of mutating actions currently between broadcast and a terminal state",
		},
	)

	queuePublishErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_publish_error_count",
			Help: "The total number of errors when publishing messages to the queue",
		},
	)

	viewInvalidationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_invalidation_count",
			Help: "Number of cached read views invalidated, split by view key",
		},
		[]string{"view"},
	)

	eligibleAccountsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eligible_accounts_count",
			Help: "Last observed size of the pool-eligibility allow-list",
		},
	)

	distributionProgressGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "distribution_cursor_last_index",
			Help: "Last observed lastIndex of the ledger-owned distribution cursor",
		},
	)

	prometheus.MustRegister(
		ledgerClientLatency,
		tokenClientLatency,
		dbLatency,
		eventProcessingDuration,
		adminRequestDuration,
		txConfirmLatency,
		inFlightActionsGauge,
		queuePublishErrorCounter,
		viewInvalidationCounter,
		eligibleAccountsGauge,
		distributionProgressGauge,
	)
}

func RecordLedgerClientLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	ledgerClientLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordTokenClientLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	tokenClientLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordEventProcessingDuration(d time.Duration, eventType string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	eventProcessingDuration.WithLabelValues(eventType, status.String()).Observe(d.Seconds())
}

func RecordTxConfirmLatency(d time.Duration, action string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	txConfirmLatency.WithLabelValues(action, status.String()).Observe(d.Seconds())
}

func IncInFlightActions() {
	inFlightActionsGauge.Inc()
}

func DecInFlightActions() {
	inFlightActionsGauge.Dec()
}

func RecordQueuePublishError() {
	queuePublishErrorCounter.Inc()
}

func RecordViewInvalidation(view string) {
	viewInvalidationCounter.WithLabelValues(view).Inc()
}

func RecordEligibleAccountsCount(count int) {
	eligibleAccountsGauge.Set(float64(count))
}

func RecordDistributionCursorIndex(lastIndex uint64) {
	distributionProgressGauge.Set(float64(lastIndex))
}

// StartAdminRequestTimer starts a timer to measure an admin API request duration.
func StartAdminRequestTimer(method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		adminRequestDuration.WithLabelValues(
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}
