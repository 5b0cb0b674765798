package observability

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher carries mutation and audit events out of process. Mutations
// never depend on it succeeding.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error
	Close() error
}

// NewPublisher connects to the broker and declares the topic exchange the
// feed.* and chat.* events flow through. Missing configuration or a failed
// dial degrades to a logging noop publisher instead of an error.
func NewPublisher(url, exchange string) Publisher {
	if url == "" {
		log.Info().Msg("amqp not configured, events will be logged only")
		return noopPublisher{reason: "amqp url is empty"}
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		log.Warn().Err(err).Msg("amqp unavailable, events will be logged only")
		return noopPublisher{reason: err.Error()}
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("amqp channel failed, events will be logged only")
		_ = conn.Close()
		return noopPublisher{reason: err.Error()}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Str("exchange", exchange).Msg("exchange declare failed, events will be logged only")
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{reason: err.Error()}
	}

	log.Info().Str("exchange", exchange).Msg("amqp connected")
	return &amqpPublisher{conn: conn, channel: ch, exchange: exchange}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func (p *amqpPublisher) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	amqpHeaders := amqp.Table{}
	for key, value := range headers {
		amqpHeaders[key] = value
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqpHeaders,
	})
	if err != nil {
		IncAMQPPublishError()
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("amqp publish failed")
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// noopPublisher stands in when no broker is reachable. Event envelopes are
// still visible at debug level so local runs can trace the mutation flow.
type noopPublisher struct {
	reason string
}

func (noopPublisher) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	evt := log.Debug().Str("routing_key", routingKey)
	if envelope, ok := message.(EventEnvelope); ok {
		evt = evt.Str("event_name", envelope.EventName)
	}
	evt.Msg("event dropped, amqp disabled")
	return nil
}

func (noopPublisher) Close() error { return nil }

// PublisherMode reports how events leave the process, for startup logs.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "custom"
	}
}

// NoopReason explains why a publisher degraded; empty for live publishers.
func NoopReason(p Publisher) string {
	if noop, ok := p.(noopPublisher); ok {
		return noop.reason
	}
	return ""
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}
	return defaultPublisher.PublishJSON(ctx, routingKey, message, headers)
}
