package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the part of *amqp.Channel AMQPSink uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes changes to a topic exchange with routing key
// "<table>.<op>".
type AMQPSink struct {
	ch       Publisher
	exchange string
	log      *zap.Logger
}

// NewAMQPSink constructs an AMQPSink on an already declared exchange.
func NewAMQPSink(ch Publisher, exchange string, log *zap.Logger) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange, log: log}
}

// DialAMQP connects to url, declares a durable topic exchange and returns a
// sink bound to it. The returned func closes the connection.
func DialAMQP(url, exchange string, log *zap.Logger) (*AMQPSink, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	closeFn := func() {
		_ = ch.Close()
		if err := conn.Close(); err != nil {
			log.Warn("amqp close failed", zap.Error(err))
		}
	}
	return NewAMQPSink(ch, exchange, log), closeFn, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

// RoutingKey returns the routing key for c.
func RoutingKey(c Change) string { return c.Table + "." + c.Op }

// Publish implements Sink.
func (s *AMQPSink) Publish(ctx context.Context, c Change) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	key := RoutingKey(c)
	err = s.ch.PublishWithContext(ctx, s.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    c.ID,
		Timestamp:    c.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", key, err)
	}
	s.log.Debug("change published", zap.String("exchange", s.exchange), zap.String("routing_key", key))
	return nil
}
