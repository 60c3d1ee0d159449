// internal/publisher/publisher.go
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/events"
)

type Config struct {
	URL string
	// Exchange is a durable topic exchange; events are routed by type. Without
	// one, events go to Queue through the default exchange.
	Exchange  string
	Queue     string
	DialTries uint
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards ledger events to RabbitMQ as persistent JSON messages.
type Publisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	queue    string
	logger   *zap.Logger
}

// Dial connects with retries, opens a channel and declares the topology.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	logger = logger.Named("publisher")
	if cfg.DialTries == 0 {
		cfg.DialTries = 5
	}

	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.URL)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(cfg.DialTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warn("Failed to connect to RabbitMQ, retrying", zap.Duration("backoff", d), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := New(ch, cfg.Exchange, cfg.Queue, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	logger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Exchange), zap.String("queue", cfg.Queue))
	return p, nil
}

// New declares the exchange and queue on ch. When both are set the queue is
// bound to every event type.
func New(ch Channel, exchange, queue string, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" && queue == "" {
		return nil, errors.New("publisher needs an exchange or a queue")
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
	}
	if queue != "" {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
		if binder, ok := ch.(interface {
			QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
		}); ok && exchange != "" {
			if err := binder.QueueBind(queue, "#", exchange, false, nil); err != nil {
				return nil, fmt.Errorf("failed to bind queue: %w", err)
			}
		}
	}
	return &Publisher{channel: ch, exchange: exchange, queue: queue, logger: logger}, nil
}

// Attach forwards every bus event.
func (p *Publisher) Attach(bus *events.Bus) events.Subscription {
	return bus.SubscribeFunc(events.Any, p.Handle)
}

// Handle publishes one event.
func (p *Publisher) Handle(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := string(e.Type())
	if p.exchange == "" {
		key = p.queue
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID(),
		Type:         string(e.Type()),
		Timestamp:    e.Timestamp(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type(), err)
	}

	p.logger.Debug("Published event",
		zap.String("event_type", string(e.Type())),
		zap.String("event_id", e.ID()))
	return nil
}

func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
