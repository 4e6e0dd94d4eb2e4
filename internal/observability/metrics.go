package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (agent stopped pushing) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Ingest latency is bounded by the slower upload.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Ingested samples by outcome (success, partial, rejected). Watch for: partial share rising.
	SamplesIngestedTotal *prometheus.CounterVec

	// Upload calls per destination and status label. Watch for: error vs success ratio per destination.
	UploadsTotal *prometheus.CounterVec

	// Upload latency per destination. Watch for: p99 approaching the 30s timeout.
	UploadDuration *prometheus.HistogramVec

	// Upload failures by destination and error category.
	UploadErrorsTotal *prometheus.CounterVec

	// Last accepted value per field. Reset on every sample so dropped fields disappear.
	LatestSampleValue *prometheus.GaugeVec

	// Unix time of the last accepted sample.
	LatestSampleTimestamp prometheus.Gauge

	// Failed writes to the memcached mirror.
	MirrorErrorsTotal prometheus.Counter

	// MQTT messages by result (processed, rejected, decode_error).
	MQTTMessagesTotal *prometheus.CounterVec

	// Rate limit denials on the ingest routes.
	RateLimitDeniedTotal prometheus.Counter

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	SamplesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samplesIngestedTotal",
			Help: "Total number of ingested samples by outcome",
		},
		[]string{"outcome"},
	)
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadsTotal",
			Help: "Total number of upload calls per destination",
		},
		[]string{"destination", "status"},
	)
	UploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uploadDurationSeconds",
			Help:    "Upload latency in seconds per destination",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"destination", "status"},
	)
	UploadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadErrorsTotal",
			Help: "Upload failures per destination and error category",
		},
		[]string{"destination", "category"},
	)
	LatestSampleValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "latestSampleValue",
			Help: "Raw value of each field in the last accepted sample",
		},
		[]string{"field"},
	)
	LatestSampleTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "latestSampleTimestampSeconds",
			Help: "Unix time the last sample was accepted",
		},
	)
	MirrorErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mirrorErrorsTotal",
			Help: "Failed writes of the latest sample to memcached",
		},
	)
	MQTTMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqttMessagesTotal",
			Help: "MQTT messages received by result",
		},
		[]string{"result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		SamplesIngestedTotal,
		UploadsTotal, UploadDuration, UploadErrorsTotal,
		LatestSampleValue, LatestSampleTimestamp,
		MirrorErrorsTotal, MQTTMessagesTotal,
		RateLimitDeniedTotal,
	)
}

// TrafficCounter is the subset of traffic.Tracker the window gauges read.
type TrafficCounter interface {
	RequestCount(window time.Duration) int
	DenialCount(window time.Duration) int
	ErrorRate(window time.Duration) (errors, total int)
}

// RegisterTrafficGauges registers sliding-window gauges backed by the tracker.
// Only the first call registers; later calls are no-ops.
func RegisterTrafficGauges(tracker TrafficCounter, window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "ingestRequestsInWindow",
					Help: "Ingest requests in the sliding window, including rate limit denials",
				},
				func() float64 { return float64(tracker.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in the sliding window",
				},
				func() float64 { return float64(tracker.DenialCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "uploadFailuresInWindow",
					Help: "Failed destination uploads in the sliding window",
				},
				func() float64 {
					errs, _ := tracker.ErrorRate(window)
					return float64(errs)
				},
			),
		)
	})
}

var latestSampleMu sync.Mutex

// RecordLatestSample replaces the per-field gauges with the given sample.
// Calls are serialized so the gauges never mix fields from two samples.
func RecordLatestSample(fields map[string]float64, at time.Time) {
	latestSampleMu.Lock()
	defer latestSampleMu.Unlock()
	LatestSampleValue.Reset()
	for name, v := range fields {
		LatestSampleValue.WithLabelValues(name).Set(v)
	}
	LatestSampleTimestamp.Set(float64(at.Unix()))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
