package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-uploader/internal/observability"
)

// RouterOptions configures middleware on the ingest routes.
type RouterOptions struct {
	// Limiter guards POST /metrics and POST /write. Nil disables rate limiting.
	Limiter *rate.Limiter
	// RequestTimeout bounds reading the ingest body; a slower client gets 400.
	// Zero disables it.
	RequestTimeout time.Duration
	// InFlight counts requests for graceful shutdown. May be nil.
	InFlight *InFlightTracker
}

// NewRouter wires every route:
//
//	POST /metrics, POST /write  ingest a Telegraf metric or batch
//	GET  /metrics               Prometheus scrape
//	GET  /latest                latest accepted fields
//	GET  /health                health status
func NewRouter(h *Handler, logger *zap.Logger, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware(opts.InFlight))

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/latest", h.GetLatest).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	var ingestHandler http.Handler = http.HandlerFunc(h.PostMetrics)
	ingestHandler = TimeoutMiddleware(opts.RequestTimeout)(ingestHandler)
	ingestHandler = RateLimitMiddleware(opts.Limiter, h.tracker)(ingestHandler)
	router.Handle("/metrics", ingestHandler).Methods(http.MethodPost)
	router.Handle("/write", ingestHandler).Methods(http.MethodPost)

	return router
}
