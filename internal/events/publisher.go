// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "enrollment.events"

	RoutingEnrollmentCreated = "enrollment.created"
	RoutingUserCreated       = "user.created"
)

// Publisher sends one encoded event to a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
	Close() error
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connection interface {
	Close() error
}

var dialChannel = func(url string) (connection, channel, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Properties: amqp.Table{
			"connection_name": "alcovian-api",
		},
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// AMQPPublisher publishes persistent JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	exchange string

	mu   sync.Mutex
	conn connection
	ch   channel
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, ch, err := dialChannel(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &AMQPPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("publisher channel not ready")
	}

	headers := amqp.Table{}
	if rid := RequestIDFrom(ctx); rid != "" {
		headers["X-Request-ID"] = rid
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		MessageId:    messageID,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

// Nop discards every event. Used when RABBITMQ_URL is unset.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, []byte) error { return nil }
func (Nop) Close() error                                          { return nil }

type FakePublisher struct {
	PublishFn func(ctx context.Context, routingKey, messageID string, body []byte) error
	CloseFn   func() error
}

func (f *FakePublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if f.PublishFn != nil {
		return f.PublishFn(ctx, routingKey, messageID, body)
	}
	panic("unexpected Publish")
}

func (f *FakePublisher) Close() error {
	if f.CloseFn != nil {
		return f.CloseFn()
	}
	return nil
}
