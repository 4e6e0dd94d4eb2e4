// Package validation checks the structure of inbound metrics before they
// reach the ingestion pipeline.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

// ErrNameRequired is returned when the metric has no name.
var ErrNameRequired = errors.New("metric name is required")

// ErrNameTooLong is returned when the metric name exceeds 256 bytes.
var ErrNameTooLong = errors.New("metric name too long")

// ErrFieldsRequired is returned when the fields object is missing or null.
var ErrFieldsRequired = errors.New("metric fields are required")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateMetric checks the struct tags on models.Metric and maps the first
// violation to one of the package sentinel errors. An empty fields object is
// structurally valid; the pipeline rejects it once non-numeric values are dropped.
func ValidateMetric(m models.Metric) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate metric: %w", err)
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Name":
		if fe.Tag() == "max" {
			return ErrNameTooLong
		}
		return ErrNameRequired
	case "Fields":
		return ErrFieldsRequired
	}
	return fmt.Errorf("metric field %s failed %q", fe.StructField(), fe.Tag())
}
