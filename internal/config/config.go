package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from .env, YAML and the environment.
type Config struct {
	ServerPort string

	MetricName     string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration

	WUStationID  string
	WUPassword   string
	WUURL        string
	PWSStationID string
	PWSPassword  string
	PWSURL       string

	RateLimitRPS   int // 0 disables the ingest limiter
	RateLimitBurst int

	MirrorEnabled         bool
	MemcachedAddrs        string
	MemcachedKey          string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTQoS      int
	MQTTUsername string
	MQTTPassword string

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	IdleWindow           time.Duration
	MinimumLifespan      time.Duration
	DegradedWindow       time.Duration
	DegradedErrorPct     int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Ingest struct {
		MetricName     string `yaml:"metric_name"`
		RequestTimeout string `yaml:"request_timeout"`
		RateLimitRPS   *int   `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"ingest"`

	Upload struct {
		Timeout            string `yaml:"timeout"`
		WeatherUnderground struct {
			URL string `yaml:"url"`
		} `yaml:"wunderground"`
		PWSWeather struct {
			URL string `yaml:"url"`
		} `yaml:"pwsweather"`
	} `yaml:"upload"`

	Mirror struct {
		Enabled   bool `yaml:"enabled"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Key          string `yaml:"key"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"mirror"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker"`
		ClientID string `yaml:"client_id"`
		Topic    string `yaml:"topic"`
		QoS      *int   `yaml:"qos"`
		Username string `yaml:"username"`
	} `yaml:"mqtt"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		IdleWindow           string `yaml:"idle_window"`
		MinimumLifespan      string `yaml:"minimum_lifespan"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	WUStationID  string `yaml:"wu_station_id"`
	WUPassword   string `yaml:"wu_password"`
	PWSStationID string `yaml:"pws_station_id"`
	PWSPassword  string `yaml:"pws_password"`
	MQTTPassword string `yaml:"mqtt_password"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(cwd)
}

// LoadDir loads dir/.env (optional, never overrides the real environment),
// dir/config/{ENV_NAME}.yaml (default dev), then credentials from env with
// dir/config/secrets.yaml as fallback.
func LoadDir(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(dir, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = envOr("PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.MetricName = strings.TrimSpace(fc.Ingest.MetricName)
	if cfg.MetricName == "" {
		cfg.MetricName = "weather"
	}
	cfg.RequestTimeout = parseDuration(fc.Ingest.RequestTimeout, 10*time.Second)
	// Off unless configured: a denied sample is never retried by the agent.
	if fc.Ingest.RateLimitRPS != nil {
		cfg.RateLimitRPS = *fc.Ingest.RateLimitRPS
	}
	cfg.RateLimitBurst = fc.Ingest.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}

	cfg.UploadTimeout = parseDurationOrZero(fc.Upload.Timeout, 30*time.Second)
	cfg.WUURL = envOr("WU_URL", fc.Upload.WeatherUnderground.URL)
	cfg.PWSURL = envOr("PWS_URL", fc.Upload.PWSWeather.URL)

	missing := []string{}
	cfg.WUStationID = credential("WU_STATION_ID", sec.WUStationID, &missing)
	cfg.WUPassword = credential("WU_PASSWORD", sec.WUPassword, &missing)
	cfg.PWSStationID = credential("PWS_STATION_ID", sec.PWSStationID, &missing)
	cfg.PWSPassword = credential("PWS_PASSWORD", sec.PWSPassword, &missing)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s required (set env or config/secrets.yaml)", strings.Join(missing, ", "))
	}

	cfg.MirrorEnabled = fc.Mirror.Enabled
	cfg.MemcachedAddrs = envOr("MEMCACHED_ADDRS", fc.Mirror.Memcached.Addrs)
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedKey = strings.TrimSpace(fc.Mirror.Memcached.Key)
	cfg.MemcachedTimeout = parseDuration(fc.Mirror.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Mirror.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.MQTTEnabled = fc.MQTT.Enabled
	cfg.MQTTBroker = envOr("MQTT_BROKER", fc.MQTT.Broker)
	cfg.MQTTClientID = fc.MQTT.ClientID
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = "weather-uploader"
	}
	cfg.MQTTTopic = fc.MQTT.Topic
	if cfg.MQTTTopic == "" {
		cfg.MQTTTopic = "telegraf/weather"
	}
	cfg.MQTTQoS = 1
	if fc.MQTT.QoS != nil {
		cfg.MQTTQoS = *fc.MQTT.QoS
	}
	cfg.MQTTUsername = fc.MQTT.Username
	cfg.MQTTPassword = envOr("MQTT_PASSWORD", sec.MQTTPassword)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)
	// Uploads may still be running when the listener closes.
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, cfg.UploadTimeout+5*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.IdleWindow = parseDurationOrZero(fc.Lifecycle.IdleWindow, 10*time.Minute)
	cfg.MinimumLifespan = parseDuration(fc.Lifecycle.MinimumLifespan, 5*time.Minute)
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TrafficRetention is how long upload outcomes and denials must be kept for
// the overload and degraded windows to be evaluated in full.
func (c *Config) TrafficRetention() time.Duration {
	return max(c.OverloadWindow, c.DegradedWindow)
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

// credential prefers the environment variable, then the secrets file value,
// and appends name to missing when both are empty.
func credential(name, fromSecrets string, missing *[]string) string {
	v := envOr(name, fromSecrets)
	if v == "" {
		*missing = append(*missing, name)
	}
	return v
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.UploadTimeout <= 0 {
		return fmt.Errorf("upload.timeout must be positive")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("ingest.rate_limit_rps must not be negative, got %d", cfg.RateLimitRPS)
	}
	for name, raw := range map[string]string{"upload.wunderground.url": cfg.WUURL, "upload.pwsweather.url": cfg.PWSURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if cfg.MQTTEnabled {
		if cfg.MQTTBroker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
		}
		if cfg.MQTTQoS < 0 || cfg.MQTTQoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTTQoS)
		}
	}
	if cfg.DegradedErrorPct > 100 || cfg.OverloadThresholdPct > 100 {
		return fmt.Errorf("lifecycle percentages must be at most 100")
	}
	return nil
}
