package ingest

import (
	"fmt"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

// SelectMetric picks the newest metric named name from a batch. Ties on
// timestamp go to the later entry, matching arrival order.
func SelectMetric(metrics []models.Metric, name string) (models.Metric, error) {
	if len(metrics) == 0 {
		return models.Metric{}, fmt.Errorf("%w: empty batch", ErrInvalidMetric)
	}
	best := -1
	for i, m := range metrics {
		if m.Name != name {
			continue
		}
		if best < 0 || m.Timestamp >= metrics[best].Timestamp {
			best = i
		}
	}
	if best < 0 {
		return models.Metric{}, fmt.Errorf("%w: no %q metric in batch of %d", ErrUnknownMetric, name, len(metrics))
	}
	return metrics[best], nil
}
