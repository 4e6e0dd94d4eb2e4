// Package client uploads weather samples to third-party reporting services.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-uploader/internal/models"
	"github.com/kjstillabower/weather-uploader/internal/observability"
)

// DefaultTimeout bounds one upload, connect to body read.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a destination response is read.
const maxBodyBytes = 64 << 10

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTransport          = errors.New("transport failure")
	ErrUpstreamStatus     = errors.New("unsuccessful status")
	ErrRejected           = errors.New("upload rejected")
)

// Uploader sends one sample to one destination.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, sample models.WeatherSample) error
}

// Reporter is an Uploader for any wunderground-protocol destination.
type Reporter struct {
	dest         Destination
	creds        Credentials
	softwareType string
	timeout      time.Duration
	client       *http.Client
}

// NewReporter validates creds and the destination URL. timeout <= 0 uses DefaultTimeout.
func NewReporter(dest Destination, creds Credentials, softwareType string, timeout time.Duration) (*Reporter, error) {
	if strings.TrimSpace(creds.StationID) == "" {
		return nil, fmt.Errorf("%w: %s station ID is required", ErrInvalidCredentials, dest.Name)
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("%w: %s password is required", ErrInvalidCredentials, dest.Name)
	}
	u, err := url.Parse(dest.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid URL %q", dest.Name, dest.URL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reporter{
		dest:         dest,
		creds:        creds,
		softwareType: softwareType,
		timeout:      timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name returns the destination name used in logs, metrics and response messages.
func (r *Reporter) Name() string {
	return r.dest.Name
}

// Upload sends sample once. Every expected failure is returned as an error
// wrapping ErrTransport, ErrUpstreamStatus or ErrRejected.
func (r *Reporter) Upload(ctx context.Context, sample models.WeatherSample) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := r.buildRequest(reqCtx, sample)
	if err != nil {
		r.record("error", start, err)
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrTransport, redact(err, r.creds.Password))
		r.record("error", start, err)
		return err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		err = fmt.Errorf("%w: read response body: %s", ErrTransport, redact(readErr, r.creds.Password))
		r.record("error", start, err)
		return err
	}

	err = r.classify(resp.StatusCode, body)
	r.record(statusLabel(resp.StatusCode, err), start, err)
	return err
}

func (r *Reporter) buildRequest(ctx context.Context, sample models.WeatherSample) (*http.Request, error) {
	baseURL, err := url.Parse(r.dest.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid destination URL: %w", err)
	}

	params := r.Params(sample)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.softwareType != "" {
		req.Header.Set("User-Agent", r.softwareType)
	}
	return req, nil
}

// Params returns the full query for sample: credentials, protocol fields, then weather fields.
func (r *Reporter) Params(sample models.WeatherSample) url.Values {
	params := weatherParams(sample)
	params.Set(r.dest.IDParam, r.creds.StationID)
	params.Set(r.dest.PasswordParam, r.creds.Password)
	params.Set("action", "updateraw")
	// The destination stamps the reading with its own receive time.
	params.Set("dateutc", "now")
	params.Set("softwaretype", r.softwareType)
	return params
}

func (r *Reporter) classify(status int, body []byte) error {
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUpstreamStatus, status, snippet(body))
	}
	if r.dest.Accept != nil && !r.dest.Accept(body) {
		return fmt.Errorf("%w: HTTP %d: %s", ErrRejected, status, snippet(body))
	}
	return nil
}

func (r *Reporter) record(status string, start time.Time, err error) {
	observability.UploadsTotal.WithLabelValues(r.dest.Name, status).Inc()
	observability.UploadDuration.WithLabelValues(r.dest.Name, status).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UploadErrorsTotal.WithLabelValues(r.dest.Name, string(CategorizeError(err))).Inc()
	}
}

// snippet trims a response body for inclusion in error messages.
func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}

// redact removes the password from transport errors, which embed the full request URL.
func redact(err error, password string) string {
	msg := err.Error()
	if password == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(password), "REDACTED")
	return strings.ReplaceAll(msg, password, "REDACTED")
}

func statusLabel(statusCode int, err error) string {
	switch {
	case statusCode >= 200 && statusCode < 300 && err == nil:
		return "success"
	case statusCode >= 200 && statusCode < 300:
		return "rejected"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
