package models

// Recognized field names.
const (
	FieldTemperature        = "temperature"
	FieldHumidity           = "humidity"
	FieldBarometricPressure = "barometric_pressure"
	FieldWindDirection      = "wind_direction"
	FieldWindSpeed          = "wind_speed"
	FieldWindGust           = "wind_gust"
	FieldRainfallHourly     = "rainfall_hourly"
	FieldRainfallDaily      = "rainfall_daily"
	FieldPM25               = "pm2_5"
	FieldPM10               = "pm10"
	FieldLightIntensity     = "light_intensity"
	FieldCO2                = "co2"
)

// WeatherSample is one station reading in metric units. A nil field was not
// reported by the station; it is never zero-filled.
type WeatherSample struct {
	Temperature        *float64 `json:"temperature,omitempty"`         // °C
	Humidity           *float64 `json:"humidity,omitempty"`            // %
	BarometricPressure *float64 `json:"barometric_pressure,omitempty"` // hPa
	WindDirection      *float64 `json:"wind_direction,omitempty"`      // degrees
	WindSpeed          *float64 `json:"wind_speed,omitempty"`          // m/s
	WindGust           *float64 `json:"wind_gust,omitempty"`           // m/s
	RainfallHourly     *float64 `json:"rainfall_hourly,omitempty"`     // mm
	RainfallDaily      *float64 `json:"rainfall_daily,omitempty"`      // mm
	PM25               *float64 `json:"pm2_5,omitempty"`               // µg/m³
	PM10               *float64 `json:"pm10,omitempty"`                // µg/m³
	LightIntensity     *float64 `json:"light_intensity,omitempty"`     // lux, kept but not uploaded
	CO2                *float64 `json:"co2,omitempty"`                 // ppm
}

// NumericFields narrows a metric's field map to its numeric entries. Every
// numeric key is kept, recognized or not; non-numeric values are dropped.
func NumericFields(fields map[string]FieldValue) map[string]float64 {
	out := make(map[string]float64, len(fields))
	for name, v := range fields {
		if f, ok := v.Float(); ok {
			out[name] = f
		}
	}
	return out
}

// SampleFromFields builds a WeatherSample from numeric fields. Unrecognized
// names are ignored.
func SampleFromFields(fields map[string]float64) WeatherSample {
	get := func(name string) *float64 {
		v, ok := fields[name]
		if !ok {
			return nil
		}
		return &v
	}
	return WeatherSample{
		Temperature:        get(FieldTemperature),
		Humidity:           get(FieldHumidity),
		BarometricPressure: get(FieldBarometricPressure),
		WindDirection:      get(FieldWindDirection),
		WindSpeed:          get(FieldWindSpeed),
		WindGust:           get(FieldWindGust),
		RainfallHourly:     get(FieldRainfallHourly),
		RainfallDaily:      get(FieldRainfallDaily),
		PM25:               get(FieldPM25),
		PM10:               get(FieldPM10),
		LightIntensity:     get(FieldLightIntensity),
		CO2:                get(FieldCO2),
	}
}

// ExtractSample applies NumericFields then SampleFromFields.
func ExtractSample(fields map[string]FieldValue) WeatherSample {
	return SampleFromFields(NumericFields(fields))
}
