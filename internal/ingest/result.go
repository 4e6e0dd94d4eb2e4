package ingest

import (
	"net/http"
	"time"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

// Status classifies one processed request.
type Status int

const (
	// StatusSuccess: every destination accepted the sample.
	StatusSuccess Status = iota
	// StatusPartial: at least one destination accepted and at least one failed.
	StatusPartial
	// StatusFailed: every destination failed. Reported to the agent like StatusPartial.
	StatusFailed
	// StatusRejected: the input was unusable and nothing was uploaded.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the outcome onto the agent-facing response code.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusSuccess:
		return http.StatusOK
	case StatusPartial, StatusFailed:
		return http.StatusPartialContent
	default:
		return http.StatusBadRequest
	}
}

// UploadOutcome is one destination's result.
type UploadOutcome struct {
	Destination string    `json:"destination"`
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	At          time.Time `json:"at"`
}

// Result is the merged outcome of one processed metric.
type Result struct {
	Status   Status
	Message  string
	Outcomes []UploadOutcome
	Sample   models.WeatherSample
}

// Response converts r into the body returned to the agent.
func (r Result) Response() models.UploadResponse {
	return models.UploadResponse{
		Success: r.Status == StatusSuccess,
		Message: r.Message,
	}
}
