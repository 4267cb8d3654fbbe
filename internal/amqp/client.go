// Package amqp publishes and consumes expense events on RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

// Config describes the broker topology.
type Config struct {
	URL      string
	Exchange string
	Queue    string

	// DialAttempts is how many times to try connecting before giving up.
	DialAttempts int
	// RetryInterval is the first wait between attempts; it grows
	// exponentially.
	RetryInterval time.Duration
	// Prefetch bounds unacknowledged deliveries per consumer.
	Prefetch int
}

func (c *Config) setDefaults() {
	if c.DialAttempts <= 0 {
		c.DialAttempts = 5
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 500 * time.Millisecond
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 10
	}
}

type Client struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	prefetch     int
	logger       *log.Logger
}

// NewClient connects to the broker, retrying with exponential backoff, and
// declares the exchange and queue.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	cfg.setDefaults()
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAMQP)

	conn, err := dialWithRetry(ctx, cfg, logger, amqp091.Dial)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
		prefetch:     cfg.Prefetch,
		logger:       logger,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

// dialWithRetry calls dial until it succeeds, the attempts run out or ctx is
// done.
func dialWithRetry[C any](ctx context.Context, cfg Config, logger *log.Logger, dial func(string) (C, error)) (C, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.RetryInterval
	expBackoff.MaxInterval = 30 * time.Second
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(cfg.DialAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryWithData[C](func() (C, error) {
		attempt++
		conn, err := dial(cfg.URL)
		if err != nil {
			logger.WarnContext(ctx, "AMQP dial failed",
				"attempt", attempt,
				"max_attempts", cfg.DialAttempts,
				log.FieldError, err)
		}
		return conn, err
	}, policy)
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// The routing key is the queue name
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishExpenseRecorded publishes the event for a stored expense.
func (c *Client) PublishExpenseRecorded(ctx context.Context, e core.Expense) error {
	body, err := NewExpenseRecordedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Published expense recorded message",
		log.FieldOperation, log.OpPublish,
		log.FieldExpenseID, e.ID,
		log.FieldEmotion, e.Emotion,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Handler processes one expense event. Returning an error requeues it.
type Handler func(context.Context, *ExpenseRecordedMessage) error

// ConsumeExpenseRecorded delivers events to handler until ctx is done or
// the broker closes the channel.
func (c *Client) ConsumeExpenseRecorded(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming expense recorded messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.process(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process decodes one body and settles it: malformed bodies are dropped,
// handler failures are requeued.
func (c *Client) process(ctx context.Context, body []byte, ack acknowledger, handler Handler) {
	msg, err := ExpenseRecordedMessageFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode message",
			log.FieldOperation, log.OpConsume,
			log.FieldError, err)
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldOperation, log.OpConsume,
			log.FieldExpenseID, msg.ID,
			log.FieldError, err)
		_ = ack.Nack(false, true)
		return
	}

	_ = ack.Ack(false)
	c.logger.DebugContext(ctx, "Processed expense recorded message",
		log.FieldOperation, log.OpConsume,
		log.FieldExpenseID, msg.ID)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
