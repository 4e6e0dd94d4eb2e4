package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

const testSoftware = "Seed Studio SenseCAP S1000 Adapter vtest"

var testCreds = Credentials{StationID: "KXXTEST1", Password: "s3cr&t"}

func f(v float64) *float64 { return &v }

func fullSample() models.WeatherSample {
	return models.WeatherSample{
		Temperature:        f(22),
		Humidity:           f(55),
		BarometricPressure: f(1013.25),
		WindDirection:      f(270.4),
		WindSpeed:          f(3.5),
		WindGust:           f(7.25),
		RainfallHourly:     f(1.2),
		RainfallDaily:      f(10),
		PM25:               f(12.34),
		PM10:               f(20.06),
		LightIntensity:     f(45000),
		CO2:                f(412),
	}
}

// captureServer records the last query and answers with status and body.
func captureServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Value, *atomic.Int32) {
	t.Helper()
	var last atomic.Value
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		last.Store(r.URL.Query())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last, &calls
}

func newReporter(t *testing.T, dest Destination) *Reporter {
	t.Helper()
	r, err := NewReporter(dest, testCreds, testSoftware, 2*time.Second)
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	return r
}

func TestNewReporter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		dest    Destination
		creds   Credentials
		wantErr error
		anyErr  bool
	}{
		{"missing station", PWSWeather(""), Credentials{Password: "p"}, ErrInvalidCredentials, true},
		{"blank station", PWSWeather(""), Credentials{StationID: "  ", Password: "p"}, ErrInvalidCredentials, true},
		{"missing password", PWSWeather(""), Credentials{StationID: "s"}, ErrInvalidCredentials, true},
		{"bad url", PWSWeather("not a url"), testCreds, nil, true},
		{"ok", WeatherUnderground(""), testCreds, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReporter(tt.dest, tt.creds, testSoftware, 0)
			if !tt.anyErr {
				if err != nil {
					t.Fatalf("NewReporter() error = %v", err)
				}
				if r.timeout != DefaultTimeout {
					t.Errorf("timeout = %v, want %v", r.timeout, DefaultTimeout)
				}
				return
			}
			if err == nil {
				t.Fatal("NewReporter() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewReporter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDestinationPresets(t *testing.T) {
	wu := WeatherUnderground("")
	if wu.URL != WeatherUndergroundURL || wu.Accept == nil {
		t.Errorf("WeatherUnderground() = %+v", wu)
	}
	pws := PWSWeather("")
	if pws.URL != PWSWeatherURL || pws.Accept != nil {
		t.Errorf("PWSWeather() = %+v", pws)
	}
	if got := PWSWeather("http://override").URL; got != "http://override" {
		t.Errorf("PWSWeather(override).URL = %q", got)
	}
}

// TestUpload_QueryParameters verifies the full parameter set, formatting precision,
// and that light intensity and CO2 are never sent.
func TestUpload_QueryParameters(t *testing.T) {
	srv, last, _ := captureServer(t, http.StatusOK, "success\n")
	r := newReporter(t, WeatherUnderground(srv.URL))

	if err := r.Upload(context.Background(), fullSample()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	q := last.Load().(url.Values)
	want := map[string]string{
		"ID":              "KXXTEST1",
		"PASSWORD":        "s3cr&t",
		"action":          "updateraw",
		"dateutc":         "now",
		"softwaretype":    testSoftware,
		"tempf":           "71.60",
		"humidity":        "55",
		"dewptf":          "54.56",
		"baromin":         "29.921",
		"winddir":         "270",
		"windspeedmph":    "7.83",
		"windgustmph":     "16.22",
		"rainin":          "0.047",
		"dailyrainin":     "0.394",
		"AqPM2.5":         "12.3",
		"AqPM2.5_avg_24h": "12.3",
		"AqPM10":          "20.1",
		"AqPM10_avg_24h":  "20.1",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}
	if len(q) != len(want) {
		t.Errorf("got %d params, want %d: %v", len(q), len(want), q)
	}
	for k := range q {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "light") || strings.Contains(lk, "co2") || strings.Contains(lk, "solar") {
			t.Errorf("unexpected parameter %s", k)
		}
	}
}

// TestParams_Dewpoint verifies dewpoint is only sent with both inputs and a finite result.
func TestParams_Dewpoint(t *testing.T) {
	r := newReporter(t, PWSWeather("http://example.invalid"))
	tests := []struct {
		name   string
		sample models.WeatherSample
		want   bool
	}{
		{"both", models.WeatherSample{Temperature: f(22), Humidity: f(55)}, true},
		{"temperature only", models.WeatherSample{Temperature: f(22)}, false},
		{"humidity only", models.WeatherSample{Humidity: f(55)}, false},
		{"zero humidity", models.WeatherSample{Temperature: f(22), Humidity: f(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := r.Params(tt.sample)["dewptf"]
			if ok != tt.want {
				t.Errorf("dewptf present = %v, want %v", ok, tt.want)
			}
		})
	}
}

// TestParams_OnlyProtocolFieldsForEmptySample verifies no weather parameters are invented.
func TestParams_OnlyProtocolFieldsForEmptySample(t *testing.T) {
	r := newReporter(t, PWSWeather("http://example.invalid"))
	q := r.Params(models.WeatherSample{LightIntensity: f(100), CO2: f(500)})
	if len(q) != 5 {
		t.Errorf("Params() = %v, want only the five protocol parameters", q)
	}
}

// TestUpload_SuccessPolicyPerDestination verifies the body marker check applies to
// wunderground only; pwsweather accepts any 2xx.
func TestUpload_SuccessPolicyPerDestination(t *testing.T) {
	tests := []struct {
		name    string
		dest    func(string) Destination
		status  int
		body    string
		wantErr error
	}{
		{"wu success body", WeatherUnderground, 200, "success", nil},
		{"wu 200 error body", WeatherUnderground, 200, "INVALIDPASSWORDID|Password or key and/or id are incorrect", ErrRejected},
		{"wu 200 empty body", WeatherUnderground, 200, "", ErrRejected},
		{"wu 500", WeatherUnderground, 500, "success", ErrUpstreamStatus},
		{"pws 200 any body", PWSWeather, 200, `{"error":"whatever"}`, nil},
		{"pws 201 empty body", PWSWeather, 201, "", nil},
		{"pws 401", PWSWeather, 401, "bad id", ErrUpstreamStatus},
		{"pws 500", PWSWeather, 500, "boom", ErrUpstreamStatus},
		{"pws 304", PWSWeather, 304, "", ErrUpstreamStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, calls := captureServer(t, tt.status, tt.body)
			r := newReporter(t, tt.dest(srv.URL))
			err := r.Upload(context.Background(), models.WeatherSample{Temperature: f(10)})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Upload() error = %v", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("calls = %d, want exactly 1 (no retries)", n)
			}
		})
	}
}

// TestUpload_StatusErrorCarriesStatusAndBody verifies the error message includes both.
func TestUpload_StatusErrorCarriesStatusAndBody(t *testing.T) {
	srv, _, _ := captureServer(t, http.StatusInternalServerError, "database is down")
	r := newReporter(t, PWSWeather(srv.URL))
	err := r.Upload(context.Background(), models.WeatherSample{})
	if err == nil {
		t.Fatal("Upload() expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "database is down") {
		t.Errorf("error = %q, want status and body", err)
	}
}

// TestUpload_TransportFailure verifies a closed server yields ErrTransport without leaking the password.
func TestUpload_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	r := newReporter(t, PWSWeather(addr))
	err := r.Upload(context.Background(), models.WeatherSample{Temperature: f(1)})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Upload() error = %v, want ErrTransport", err)
	}
	if strings.Contains(err.Error(), "s3cr") {
		t.Errorf("error leaks password: %q", err)
	}
	if CategorizeError(err) != ErrorCategoryNetwork {
		t.Errorf("category = %v, want network", CategorizeError(err))
	}
}

// TestUpload_Timeout verifies a slow destination is cut off at the configured timeout.
func TestUpload_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r, err := NewReporter(PWSWeather(srv.URL), testCreds, testSoftware, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	start := time.Now()
	err = r.Upload(context.Background(), models.WeatherSample{})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Upload() error = %v, want ErrTransport", err)
	}
	if CategorizeError(err) != ErrorCategoryTimeout {
		t.Errorf("category = %v, want timeout", CategorizeError(err))
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Upload() took %v, want about 100ms", elapsed)
	}
}

func TestUpload_UserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
	}))
	defer srv.Close()

	r := newReporter(t, PWSWeather(srv.URL))
	if err := r.Upload(context.Background(), models.WeatherSample{}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got := ua.Load().(string); got != testSoftware {
		t.Errorf("User-Agent = %q, want %q", got, testSoftware)
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet(nil); got != "(empty body)" {
		t.Errorf("snippet(nil) = %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := snippet([]byte(long)); len(got) != 259 || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet(long) len = %d", len(got))
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		err  error
		want string
	}{
		{200, nil, "success"},
		{200, ErrRejected, "rejected"},
		{429, ErrUpstreamStatus, "rate_limited"},
		{404, ErrUpstreamStatus, "client_error"},
		{503, ErrUpstreamStatus, "server_error"},
		{304, ErrUpstreamStatus, "error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code, tt.err); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
