package ingest

import (
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-uploader/internal/conversions"
	"github.com/kjstillabower/weather-uploader/internal/models"
)

// logSample writes the received reading in both unit systems.
func logSample(logger *zap.Logger, s models.WeatherSample) {
	if !logger.Core().Enabled(zap.InfoLevel) {
		return
	}
	fields := make([]zap.Field, 0, 20)
	if s.Temperature != nil {
		fields = append(fields,
			zap.Float64("temperature_c", *s.Temperature),
			zap.Float64("temperature_f", conversions.CelsiusToFahrenheit(*s.Temperature)))
	}
	if s.Humidity != nil {
		fields = append(fields, zap.Float64("humidity_pct", *s.Humidity))
		if s.Temperature != nil {
			if dp := conversions.DewpointF(*s.Temperature, *s.Humidity); conversions.IsFinite(dp) {
				fields = append(fields, zap.Float64("dewpoint_f", dp))
			}
		}
	}
	if s.BarometricPressure != nil {
		fields = append(fields,
			zap.Float64("pressure_hpa", *s.BarometricPressure),
			zap.Float64("pressure_inhg", conversions.HPaToInHg(*s.BarometricPressure)))
	}
	if s.WindDirection != nil {
		fields = append(fields, zap.Float64("wind_direction_deg", *s.WindDirection))
	}
	if s.WindSpeed != nil {
		fields = append(fields,
			zap.Float64("wind_speed_ms", *s.WindSpeed),
			zap.Float64("wind_speed_mph", conversions.MSToMPH(*s.WindSpeed)))
	}
	if s.WindGust != nil {
		fields = append(fields,
			zap.Float64("wind_gust_ms", *s.WindGust),
			zap.Float64("wind_gust_mph", conversions.MSToMPH(*s.WindGust)))
	}
	if s.RainfallHourly != nil {
		fields = append(fields,
			zap.Float64("rain_hourly_mm", *s.RainfallHourly),
			zap.Float64("rain_hourly_in", conversions.MMToInches(*s.RainfallHourly)))
	}
	if s.RainfallDaily != nil {
		fields = append(fields,
			zap.Float64("rain_daily_mm", *s.RainfallDaily),
			zap.Float64("rain_daily_in", conversions.MMToInches(*s.RainfallDaily)))
	}
	if s.PM25 != nil {
		fields = append(fields, zap.Float64("pm2_5", *s.PM25))
	}
	if s.PM10 != nil {
		fields = append(fields, zap.Float64("pm10", *s.PM10))
	}
	if s.LightIntensity != nil {
		fields = append(fields, zap.Float64("light_lux", *s.LightIntensity))
	}
	if s.CO2 != nil {
		fields = append(fields, zap.Float64("co2_ppm", *s.CO2))
	}
	logger.Info("weather sample received", fields...)
}
