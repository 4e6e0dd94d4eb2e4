package client

import "bytes"

// Destination endpoints.
const (
	WeatherUndergroundURL = "https://rtupdate.wunderground.com/weatherstation/updateweatherstation.php"
	PWSWeatherURL         = "https://pwsupdate.pwsweather.com/api/v1/submitwx"
)

// Credentials identify a station to one destination.
type Credentials struct {
	StationID string
	Password  string
}

// Destination describes how one reporting service differs from the others:
// where to send, what the credential parameters are called, and how a 2xx
// response body is judged.
type Destination struct {
	Name          string
	URL           string
	IDParam       string
	PasswordParam string
	// Accept judges a 2xx body. Nil accepts any 2xx.
	Accept func(body []byte) bool
}

// BodyContains returns an Accept func requiring marker in the body.
func BodyContains(marker string) func([]byte) bool {
	m := []byte(marker)
	return func(body []byte) bool { return bytes.Contains(body, m) }
}

// WeatherUnderground answers HTTP 200 even for rejected uploads and signals
// acceptance with "success" in the body, so the body is checked.
func WeatherUnderground(url string) Destination {
	if url == "" {
		url = WeatherUndergroundURL
	}
	return Destination{
		Name:          "wunderground",
		URL:           url,
		IDParam:       "ID",
		PasswordParam: "PASSWORD",
		Accept:        BodyContains("success"),
	}
}

// PWSWeather treats any 2xx as accepted.
func PWSWeather(url string) Destination {
	if url == "" {
		url = PWSWeatherURL
	}
	return Destination{
		Name:          "pwsweather",
		URL:           url,
		IDParam:       "ID",
		PasswordParam: "PASSWORD",
	}
}
