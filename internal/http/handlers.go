package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-uploader/internal/degraded"
	"github.com/kjstillabower/weather-uploader/internal/idle"
	"github.com/kjstillabower/weather-uploader/internal/ingest"
	"github.com/kjstillabower/weather-uploader/internal/lifecycle"
	"github.com/kjstillabower/weather-uploader/internal/models"
	"github.com/kjstillabower/weather-uploader/internal/observability"
	"github.com/kjstillabower/weather-uploader/internal/overload"
	"github.com/kjstillabower/weather-uploader/internal/state"
	"github.com/kjstillabower/weather-uploader/internal/traffic"
)

// DefaultMaxBodyBytes caps an ingest request body.
const DefaultMaxBodyBytes = 1 << 20

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	IdleWindow           time.Duration
	MinimumLifespan      time.Duration
	// MirrorPing, when set, is called to check memcached reachability.
	MirrorPing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pipeline     *ingest.Pipeline
	latest       *state.Latest
	lifecycle    *lifecycle.State
	tracker      *traffic.Tracker
	healthConfig *HealthConfig
	logger       *zap.Logger
	version      string
	maxBodyBytes int64
	now          func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil to report only
// shutting-down and healthy.
func NewHandler(
	pipeline *ingest.Pipeline,
	latest *state.Latest,
	lc *lifecycle.State,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	version string,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = traffic.NewTracker()
	}
	return &Handler{
		pipeline:     pipeline,
		latest:       latest,
		lifecycle:    lc,
		tracker:      tracker,
		healthConfig: healthConfig,
		logger:       logger,
		version:      version,
		maxBodyBytes: DefaultMaxBodyBytes,
		now:          time.Now,
	}
}

// PostMetrics handles POST /metrics and POST /write.
func (h *Handler) PostMetrics(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Unable to read request body"
		switch {
		case errors.As(err, &tooLarge):
			msg = "Request body too large"
		case errors.Is(err, os.ErrDeadlineExceeded):
			msg = "Request body read timed out"
		}
		logger.Warn("ingest body rejected", zap.Error(err))
		observability.SamplesIngestedTotal.WithLabelValues(ingest.StatusRejected.String()).Inc()
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Success: false, Message: msg})
		return
	}

	metrics, err := models.DecodeMetrics(body)
	if err != nil {
		logger.Warn("ingest body not a metric", zap.Error(err))
		observability.SamplesIngestedTotal.WithLabelValues(ingest.StatusRejected.String()).Inc()
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Success: false, Message: "Invalid metric JSON: " + err.Error()})
		return
	}

	result, err := h.pipeline.ProcessMetrics(r.Context(), metrics)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, result.Status.HTTPStatus(), result.Response())
}

// GetLatest handles GET /latest.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	snap := h.latest.Snapshot()
	resp := map[string]interface{}{
		"fields": snap.Fields,
	}
	if !snap.ReceivedAt.IsZero() {
		resp["receivedAt"] = snap.ReceivedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	last := h.pipeline.LastOutcomes()
	for _, name := range h.pipeline.Destinations() {
		o, ok := last[name]
		switch {
		case !ok:
			checks[name] = "unknown"
		case o.Success:
			checks[name] = "healthy"
		default:
			checks[name] = "unhealthy"
		}
	}
	if h.healthConfig != nil && h.healthConfig.MirrorPing != nil {
		if h.healthConfig.MirrorPing() == nil {
			checks["mirror"] = "healthy"
		} else {
			checks["mirror"] = "unhealthy"
		}
	}

	resp := map[string]interface{}{
		"status":       result.status,
		"service":      "weather-uploader",
		"version":      h.version,
		"checks":       checks,
		"destinations": last,
		"timestamp":    h.now().UTC().Format(time.RFC3339),
	}
	if snap := h.latest.Snapshot(); !snap.ReceivedAt.IsZero() {
		resp["lastSampleAt"] = snap.ReceivedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > idle > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.lifecycle != nil && h.lifecycle.ShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	cfg := h.healthConfig
	if cfg == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if overload.Exceeded(h.tracker, cfg.OverloadWindow, cfg.RateLimitRPS, cfg.OverloadThresholdPct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.lifecycle != nil {
		now := h.now()
		last := h.latest.Snapshot().ReceivedAt
		if idle.Silent(last, h.lifecycle.Started(), now, cfg.IdleWindow, cfg.MinimumLifespan) {
			return healthResult{"idle", http.StatusOK, "no_recent_samples"}
		}
	}
	if degraded.Exceeded(h.tracker, cfg.DegradedWindow, cfg.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "upload_error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}
