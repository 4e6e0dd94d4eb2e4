package client

import (
	"net/url"
	"strconv"

	"github.com/kjstillabower/weather-uploader/internal/conversions"
	"github.com/kjstillabower/weather-uploader/internal/models"
)

// weatherParams maps every present sample field to its wunderground-protocol
// parameter in imperial units. Both destinations speak the same protocol.
//
// LightIntensity (lux) and CO2 are deliberately not sent. Neither destination
// has a CO2 parameter, and the only light parameter is solarradiation in W/m²,
// which is not derivable from illuminance without knowing the light spectrum.
// Do not add a lux->W/m² factor here.
func weatherParams(s models.WeatherSample) url.Values {
	p := url.Values{}
	set := func(name string, v float64, prec int) {
		p.Set(name, strconv.FormatFloat(v, 'f', prec, 64))
	}

	if s.Temperature != nil {
		set("tempf", conversions.CelsiusToFahrenheit(*s.Temperature), 2)
	}
	if s.Humidity != nil {
		set("humidity", *s.Humidity, 0)
	}
	if s.Temperature != nil && s.Humidity != nil {
		if dp := conversions.DewpointF(*s.Temperature, *s.Humidity); conversions.IsFinite(dp) {
			set("dewptf", dp, 2)
		}
	}
	if s.BarometricPressure != nil {
		set("baromin", conversions.HPaToInHg(*s.BarometricPressure), 3)
	}
	if s.WindDirection != nil {
		set("winddir", *s.WindDirection, 0)
	}
	if s.WindSpeed != nil {
		set("windspeedmph", conversions.MSToMPH(*s.WindSpeed), 2)
	}
	if s.WindGust != nil {
		set("windgustmph", conversions.MSToMPH(*s.WindGust), 2)
	}
	if s.RainfallHourly != nil {
		set("rainin", conversions.MMToInches(*s.RainfallHourly), 3)
	}
	if s.RainfallDaily != nil {
		set("dailyrainin", conversions.MMToInches(*s.RainfallDaily), 3)
	}

	// No rolling window is kept, so the 24h averages carry the instantaneous reading.
	if s.PM25 != nil {
		set("AqPM2.5", *s.PM25, 1)
		set("AqPM2.5_avg_24h", *s.PM25, 1)
	}
	if s.PM10 != nil {
		set("AqPM10", *s.PM10, 1)
		set("AqPM10_avg_24h", *s.PM10, 1)
	}
	return p
}
