// Package ingest turns one inbound metric into a stored latest sample and one
// upload per configured destination.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-uploader/internal/client"
	"github.com/kjstillabower/weather-uploader/internal/models"
	"github.com/kjstillabower/weather-uploader/internal/observability"
	"github.com/kjstillabower/weather-uploader/internal/state"
	"github.com/kjstillabower/weather-uploader/internal/validation"
)

// DefaultMetricName is the Telegraf metric family the station publishes.
const DefaultMetricName = "weather"

var (
	ErrInvalidMetric = errors.New("invalid metric")
	ErrUnknownMetric = errors.New("unexpected metric name")
	ErrNoFields      = errors.New("no weather data found")
)

// IsClientError reports whether err came from bad input rather than a failed upload.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMetric) || errors.Is(err, ErrUnknownMetric) || errors.Is(err, ErrNoFields)
}

// Mirror receives a copy of every accepted sample. Failures are logged only.
type Mirror interface {
	Publish(ctx context.Context, snap state.Snapshot) error
}

// OutcomeRecorder counts per-destination upload outcomes for health evaluation.
type OutcomeRecorder interface {
	RecordSuccess()
	RecordError()
}

// Pipeline validates, stores and uploads samples. Safe for concurrent use.
type Pipeline struct {
	metricName string
	latest     *state.Latest
	uploaders  []client.Uploader
	recorder   OutcomeRecorder
	mirror     Mirror
	logger     *zap.Logger

	mu   sync.RWMutex
	last map[string]UploadOutcome
}

// NewPipeline wires a pipeline. metricName "" uses DefaultMetricName; recorder
// and logger may be nil.
func NewPipeline(metricName string, latest *state.Latest, uploaders []client.Uploader, recorder OutcomeRecorder, logger *zap.Logger) *Pipeline {
	if metricName == "" {
		metricName = DefaultMetricName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		metricName: metricName,
		latest:     latest,
		uploaders:  uploaders,
		recorder:   recorder,
		logger:     logger,
		last:       make(map[string]UploadOutcome, len(uploaders)),
	}
}

// SetMirror attaches an optional mirror. Call before serving traffic.
func (p *Pipeline) SetMirror(m Mirror) {
	p.mirror = m
}

// MetricName returns the accepted metric family.
func (p *Pipeline) MetricName() string {
	return p.metricName
}

// Destinations returns the configured destination names in upload order.
func (p *Pipeline) Destinations() []string {
	names := make([]string, len(p.uploaders))
	for i, u := range p.uploaders {
		names[i] = u.Name()
	}
	return names
}

// LastOutcomes returns the most recent outcome per destination. Destinations
// that have not been called yet are absent.
func (p *Pipeline) LastOutcomes() map[string]UploadOutcome {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]UploadOutcome, len(p.last))
	for k, v := range p.last {
		out[k] = v
	}
	return out
}

// ProcessMetrics handles a decoded request body. A single metric is processed
// as is; a batch is narrowed with SelectMetric first.
func (p *Pipeline) ProcessMetrics(ctx context.Context, metrics []models.Metric) (Result, error) {
	if len(metrics) == 1 {
		return p.Process(ctx, metrics[0])
	}
	m, err := SelectMetric(metrics, p.metricName)
	if err != nil {
		return p.reject(ctx, err)
	}
	return p.Process(ctx, m)
}

// Process runs one metric through the pipeline. A non-nil error means the
// metric was rejected before anything was stored or uploaded; upload failures
// are reported in the Result instead.
func (p *Pipeline) Process(ctx context.Context, m models.Metric) (Result, error) {
	logger := observability.LoggerFromContext(ctx, p.logger)
	logger.Info("metric received", zap.String("metric", m.Name))

	if err := validation.ValidateMetric(m); err != nil {
		return p.reject(ctx, fmt.Errorf("%w: %w", ErrInvalidMetric, err))
	}
	if m.Name != p.metricName {
		return p.reject(ctx, fmt.Errorf("%w: expected %q metric, got %q", ErrUnknownMetric, p.metricName, m.Name))
	}

	fields := models.NumericFields(m.Fields)
	if len(fields) == 0 {
		return p.reject(ctx, ErrNoFields)
	}

	snap := p.latest.ReplaceWith(fields, func(s state.Snapshot) {
		observability.RecordLatestSample(s.Fields, s.ReceivedAt)
	})

	sample := models.SampleFromFields(fields)
	logSample(logger, sample)

	// Uploads outlive the inbound request; a disconnecting agent must not
	// abort a half-sent report.
	uploadCtx := context.WithoutCancel(ctx)
	p.publishMirror(uploadCtx, logger, snap)

	outcomes := p.uploadAll(uploadCtx, logger, sample)
	res := aggregate(outcomes)
	res.Sample = sample
	observability.SamplesIngestedTotal.WithLabelValues(res.Status.String()).Inc()
	return res, nil
}

func (p *Pipeline) reject(ctx context.Context, err error) (Result, error) {
	observability.LoggerFromContext(ctx, p.logger).Warn("metric rejected", zap.Error(err))
	observability.SamplesIngestedTotal.WithLabelValues(StatusRejected.String()).Inc()
	return Result{Status: StatusRejected, Message: err.Error()}, err
}

func (p *Pipeline) publishMirror(ctx context.Context, logger *zap.Logger, snap state.Snapshot) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.Publish(ctx, snap); err != nil {
		observability.MirrorErrorsTotal.Inc()
		logger.Warn("latest sample mirror write failed", zap.Error(err))
	}
}

// uploadAll calls every uploader concurrently and waits for all of them.
// Outcomes keep uploader order regardless of completion order.
func (p *Pipeline) uploadAll(ctx context.Context, logger *zap.Logger, sample models.WeatherSample) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(p.uploaders))
	var wg sync.WaitGroup
	for i, u := range p.uploaders {
		wg.Add(1)
		go func(i int, u client.Uploader) {
			defer wg.Done()
			outcomes[i] = p.upload(ctx, logger, u, sample)
		}(i, u)
	}
	wg.Wait()
	return outcomes
}

func (p *Pipeline) upload(ctx context.Context, logger *zap.Logger, u client.Uploader, sample models.WeatherSample) (out UploadOutcome) {
	name := u.Name()
	start := time.Now()
	out = UploadOutcome{Destination: name}

	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Message = fmt.Sprintf("upload panicked: %v", r)
			logger.Error("upload panicked", zap.String("destination", name), zap.Any("panic", r))
		}
		out.At = time.Now()
		p.recordOutcome(out)
	}()

	err := u.Upload(ctx, sample)
	duration := time.Since(start)
	if err != nil {
		out.Message = err.Error()
		logger.Error("upload failed",
			zap.String("destination", name),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Duration("duration", duration),
			zap.Error(err))
		return out
	}
	out.Success = true
	out.Message = "ok"
	logger.Info("upload succeeded",
		zap.String("destination", name),
		zap.Duration("duration", duration))
	return out
}

func (p *Pipeline) recordOutcome(out UploadOutcome) {
	p.mu.Lock()
	p.last[out.Destination] = out
	p.mu.Unlock()
	if p.recorder == nil {
		return
	}
	if out.Success {
		p.recorder.RecordSuccess()
	} else {
		p.recorder.RecordError()
	}
}

// aggregate merges per-destination outcomes. Failed destinations are listed in
// uploader order; succeeded ones are never named.
func aggregate(outcomes []UploadOutcome) Result {
	var failed []string
	for _, o := range outcomes {
		if !o.Success {
			failed = append(failed, o.Destination+": "+o.Message)
		}
	}
	res := Result{Outcomes: outcomes}
	switch {
	case len(failed) == 0:
		res.Status = StatusSuccess
		res.Message = successMessage(len(outcomes))
	case len(failed) == len(outcomes):
		res.Status = StatusFailed
		res.Message = "Some uploads failed: " + strings.Join(failed, ", ")
	default:
		res.Status = StatusPartial
		res.Message = "Some uploads failed: " + strings.Join(failed, ", ")
	}
	return res
}

func successMessage(n int) string {
	switch n {
	case 0:
		return "Sample stored; no destinations configured"
	case 2:
		return "Uploaded successfully to both services"
	default:
		return fmt.Sprintf("Uploaded successfully to all %d services", n)
	}
}
