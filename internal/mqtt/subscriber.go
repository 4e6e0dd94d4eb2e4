// Package mqtt feeds Telegraf MQTT output payloads into the ingestion pipeline.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-uploader/internal/ingest"
	"github.com/kjstillabower/weather-uploader/internal/models"
	"github.com/kjstillabower/weather-uploader/internal/observability"
)

// Processor is the part of the ingestion pipeline the subscriber needs.
type Processor interface {
	ProcessMetrics(ctx context.Context, metrics []models.Metric) (ingest.Result, error)
}

// Options configures the broker connection.
type Options struct {
	BrokerURL string // e.g. tcp://localhost:1883
	ClientID  string
	Topic     string
	QoS       byte
	Username  string
	Password  string
}

var errStopped = errors.New("subscriber stopped")

// Subscriber receives metrics from one topic and processes each message as
// one ingest request. Messages are handled concurrently.
type Subscriber struct {
	client    paho.Client
	opts      Options
	processor Processor
	logger    *zap.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSubscriber builds a client with auto-reconnect. It does not connect.
func NewSubscriber(opts Options, processor Processor, logger *zap.Logger) (*Subscriber, error) {
	if opts.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker URL is required")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("mqtt topic is required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", opts.QoS)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Subscriber{
		opts:      opts,
		processor: processor,
		logger:    logger.With(zap.String("component", "mqtt"), zap.String("topic", opts.Topic)),
		stopCh:    make(chan struct{}),
	}

	co := paho.NewClientOptions()
	co.AddBroker(opts.BrokerURL)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetMaxReconnectInterval(60 * time.Second)
	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)
	// An upload can take up to the client timeout; do not block the router on it.
	co.SetOrderMatters(false)

	co.SetOnConnectHandler(func(c paho.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", zap.String("broker", opts.BrokerURL))
		// Clean sessions drop subscriptions, so subscribe on every (re)connect.
		if err := s.subscribe(c); err != nil {
			s.logger.Error("mqtt subscribe failed", zap.Error(err))
		}
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	s.client = paho.NewClient(co)
	return s, nil
}

// Connect starts the connection and waits until it is up, ctx is done, or
// Disconnect is called. Subscription happens in the connect handler.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errStopped
	default:
	}
	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return errStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe(c paho.Client) error {
	token := c.Subscribe(s.opts.Topic, s.opts.QoS, func(_ paho.Client, msg paho.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.opts.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.opts.Topic, err)
	}
	s.logger.Info("subscribed to mqtt topic", zap.Uint8("qos", s.opts.QoS))
	return nil
}

// handleMessage processes one payload. Outcomes are logged and counted; MQTT
// has no response channel.
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	logger := s.logger.With(zap.String("message_topic", topic))
	logger.Debug("received mqtt message", zap.Int("size", len(payload)))

	metrics, err := models.DecodeMetrics(payload)
	if err != nil {
		observability.MQTTMessagesTotal.WithLabelValues("decode_error").Inc()
		logger.Warn("failed to parse mqtt metric", zap.Error(err))
		return
	}
	if s.processor == nil {
		return
	}

	ctx := observability.WithLogger(context.Background(), logger)
	res, err := s.processor.ProcessMetrics(ctx, metrics)
	if err != nil {
		observability.MQTTMessagesTotal.WithLabelValues("rejected").Inc()
		return
	}
	observability.MQTTMessagesTotal.WithLabelValues(res.Status.String()).Inc()
	logger.Debug("processed mqtt metric",
		zap.String("status", res.Status.String()),
		zap.String("message", res.Message))
}

// IsConnected reports whether the broker connection is up.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect unsubscribes and closes the connection. Safe to call more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		token := s.client.Unsubscribe(s.opts.Topic)
		token.WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)
	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
