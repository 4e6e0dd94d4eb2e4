package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-uploader/internal/cache"
	"github.com/kjstillabower/weather-uploader/internal/client"
	"github.com/kjstillabower/weather-uploader/internal/config"
	httphandler "github.com/kjstillabower/weather-uploader/internal/http"
	"github.com/kjstillabower/weather-uploader/internal/ingest"
	"github.com/kjstillabower/weather-uploader/internal/lifecycle"
	"github.com/kjstillabower/weather-uploader/internal/mqtt"
	"github.com/kjstillabower/weather-uploader/internal/observability"
	"github.com/kjstillabower/weather-uploader/internal/state"
	"github.com/kjstillabower/weather-uploader/internal/traffic"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ingest server",
		Long:  `Start the HTTP server (and the MQTT subscriber when enabled) and upload every accepted sample.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := observability.NewLogger(version)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	wu, err := client.NewReporter(
		client.WeatherUnderground(cfg.WUURL),
		client.Credentials{StationID: cfg.WUStationID, Password: cfg.WUPassword},
		softwareType(),
		cfg.UploadTimeout,
	)
	if err != nil {
		logger.Fatal("wunderground client", zap.Error(err))
	}
	pws, err := client.NewReporter(
		client.PWSWeather(cfg.PWSURL),
		client.Credentials{StationID: cfg.PWSStationID, Password: cfg.PWSPassword},
		softwareType(),
		cfg.UploadTimeout,
	)
	if err != nil {
		logger.Fatal("pwsweather client", zap.Error(err))
	}

	latest := state.NewLatest()
	tracker := traffic.NewTrackerWithRetention(cfg.TrafficRetention())
	observability.RegisterTrafficGauges(tracker, cfg.OverloadWindow)

	pipeline := ingest.NewPipeline(cfg.MetricName, latest, []client.Uploader{wu, pws}, tracker, logger)

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		IdleWindow:           cfg.IdleWindow,
		MinimumLifespan:      cfg.MinimumLifespan,
	}

	var mirror *cache.MemcachedMirror
	if cfg.MirrorEnabled {
		mirror, err = cache.NewMemcachedMirror(cfg.MemcachedAddrs, cfg.MemcachedKey, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached mirror", zap.Error(err))
		}
		pipeline.SetMirror(mirror)
		healthConfig.MirrorPing = mirror.Ping
		logger.Info("latest sample mirror: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	lc := lifecycle.New(time.Now())
	inFlight := &httphandler.InFlightTracker{}
	handler := httphandler.NewHandler(pipeline, latest, lc, tracker, healthConfig, logger, version)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterOptions{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		InFlight:       inFlight,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Responses wait for both uploads.
		WriteTimeout: cfg.UploadTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		subscriber, err = mqtt.NewSubscriber(mqtt.Options{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			QoS:       byte(cfg.MQTTQoS),
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		}, pipeline, logger)
		if err != nil {
			logger.Fatal("mqtt subscriber", zap.Error(err))
		}
		go func() {
			if err := subscriber.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mqtt connect", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("metric", pipeline.MetricName()),
			zap.Strings("destinations", pipeline.Destinations()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lc.BeginShutdown()
	if subscriber != nil {
		subscriber.Disconnect()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if mirror != nil {
		if err := mirror.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
	logger.Info("shutdown complete")
	return nil
}
