package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metric is one Telegraf metric in the JSON serializer format.
type Metric struct {
	Name      string                `json:"name" validate:"required,max=256"`
	Timestamp int64                 `json:"timestamp"`
	Tags      map[string]string     `json:"tags,omitempty"`
	Fields    map[string]FieldValue `json:"fields" validate:"required"`
}

// Batch is the Telegraf json_batch shape.
type Batch struct {
	Metrics []Metric `json:"metrics"`
}

// UploadResponse is returned to the agent for every ingest request.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DecodeMetrics accepts either a single metric object or a {"metrics": [...]} batch.
func DecodeMetrics(body []byte) ([]Metric, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode metric: %w", err)
	}
	if _, ok := probe["metrics"]; ok {
		if _, single := probe["name"]; !single {
			var b Batch
			if err := json.Unmarshal(body, &b); err != nil {
				return nil, fmt.Errorf("decode batch: %w", err)
			}
			return b.Metrics, nil
		}
	}
	var m Metric
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode metric: %w", err)
	}
	return []Metric{m}, nil
}
