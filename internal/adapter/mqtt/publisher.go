// Package mqtt publishes joined rows as retained MQTT messages, one topic
// per country and city.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	poll           = 200 * time.Millisecond
)

// client is the subset of paho.Client used by Publisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher writes each joined row to <prefix>/<country code>/<city>.
type Publisher struct {
	client client
	prefix string
	logger *slog.Logger
}

// NewPublisher connects to the configured broker. The connection attempt
// is abandoned when ctx is done.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	c := paho.NewClient(opts)
	if err := wait(ctx, c.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect %s:%d: %w", cfg.MQTTBroker, cfg.MQTTPort, err)
	}
	logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)

	return &Publisher{client: c, prefix: cfg.MQTTTopicPrefix, logger: logger}, nil
}

func (p *Publisher) Name() string { return "mqtt" }

// Write publishes every row as a retained QoS 1 message.
func (p *Publisher) Write(ctx context.Context, rows []domain.JoinedRow) error {
	for _, r := range rows {
		data, err := json.Marshal(domain.NewRowMessage(r))
		if err != nil {
			return fmt.Errorf("mqtt sink: serialize row %s: %w", r.Key(), err)
		}
		topic := p.topic(r)

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = wait(pubCtx, p.client.Publish(topic, qos, true, data))
		cancel()
		if err != nil {
			return fmt.Errorf("mqtt sink: publish %s: %w", topic, err)
		}
		p.logger.Debug("row published", "topic", topic)
	}
	return nil
}

// Close disconnects from the broker, letting in-flight work drain.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

func (p *Publisher) topic(r domain.JoinedRow) string {
	city := "_"
	if r.Weather != nil && r.Weather.City.Name != "" {
		city = r.Weather.City.Name
	}
	return p.prefix + "/" + topicLevel(r.Stat.Code) + "/" + topicLevel(city)
}

var levelReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// topicLevel makes s safe as a single topic level.
func topicLevel(s string) string {
	if s == "" {
		return "_"
	}
	return levelReplacer.Replace(s)
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token paho.Token) error {
	for {
		if token.WaitTimeout(poll) {
			return token.Error()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
