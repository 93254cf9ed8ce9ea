// Package metrics exposes Prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                 *prometheus.CounterVec
	bytesTotal                 *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	extractionStrategyTotal    *prometheus.CounterVec
	qualityScore               prometheus.Histogram
	jobsTotal                  *prometheus.CounterVec
	activeJobs                 prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	textGenerationTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times, and the
// Observe helpers call it themselves.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webextract_pages_total",
				Help: "Pages processed, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		bytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webextract_bytes_total",
				Help: "HTML bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webextract_fetch_duration_seconds",
				Help:    "Page fetch latency, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		)

		extractionStrategyTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webextract_extraction_strategy_total",
				Help: "Pages by the extraction strategy that produced their content.",
			},
			[]string{"strategy"},
		)

		qualityScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webextract_quality_score",
				Help:    "Distribution of page quality scores.",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webextract_jobs_total",
				Help: "Finished jobs, labeled by status.",
			},
			[]string{"status"},
		)

		activeJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webextract_active_jobs",
				Help: "Jobs currently running.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webextract_rate_limit_delay_seconds",
				Help:    "Time spent waiting between requests to one site.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		textGenerationTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webextract_text_generation_total",
				Help: "Text generation calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePage records one processed page.
func ObservePage(rawURL, status string, bytesFetched int, fetchDuration time.Duration) {
	Init()
	site := SanitizeSite(rawURL)
	pagesTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		bytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(status).Observe(fetchDuration.Seconds())
}

// ObserveExtraction records which strategy won and the resulting score.
func ObserveExtraction(strategy string, score int) {
	Init()
	extractionStrategyTotal.WithLabelValues(strategy).Inc()
	qualityScore.Observe(float64(score))
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	Init()
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveJobs increments the running jobs gauge.
func IncActiveJobs() {
	Init()
	activeJobs.Inc()
}

// DecActiveJobs decrements the running jobs gauge.
func DecActiveJobs() {
	Init()
	activeJobs.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(site string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(site).Observe(d.Seconds())
}

// ObserveTextGeneration counts a text generation call by outcome.
func ObserveTextGeneration(outcome string) {
	Init()
	textGenerationTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
