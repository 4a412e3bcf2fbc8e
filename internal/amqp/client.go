package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/lucasdreger/couplecents/internal/core"
)

// Client wraps one AMQP connection with a direct exchange and two queues:
// reconcile triggers (consumed by the worker) and increment events
// (published after every applied auto-increment).
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	triggerQueue string
	eventQueue   string
}

func NewClient(url, exchangeName, triggerQueue, eventQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
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
		exchangeName: exchangeName,
		triggerQueue: triggerQueue,
		eventQueue:   eventQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
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

	for _, queue := range []string{c.triggerQueue, c.eventQueue} {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key equals the queue name on a direct exchange.
		err = c.channel.QueueBind(queue, queue, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishReconcileTrigger asks the worker to reconcile the given period.
func (c *Client) PublishReconcileTrigger(ctx context.Context, p core.Period) error {
	body, err := NewReconcileTriggerMessage(p).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.triggerQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published reconcile trigger",
		"period", p.String(),
		"exchange", c.exchangeName,
		"queue", c.triggerQueue)
	return nil
}

// PublishIncrementApplied announces an applied auto-increment. It
// satisfies the scheduler's publisher interface.
func (c *Client) PublishIncrementApplied(ctx context.Context, cfg core.AutoIncrementConfig, p core.Period, previous, newValue core.Money) error {
	body, err := NewIncrementAppliedMessage(cfg, p, previous, newValue).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.eventQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published increment event",
		"config_id", cfg.ID,
		"period", p.String(),
		"new_value_cents", newValue.Cents,
		"queue", c.eventQueue)
	return nil
}

// ConsumeReconcileTriggers delivers trigger messages to the handler until
// the context is cancelled. Malformed messages are rejected without
// requeue; handler failures requeue the delivery.
func (c *Client) ConsumeReconcileTriggers(ctx context.Context, handler func(*ReconcileTriggerMessage) error) error {
	msgs, err := c.channel.Consume(
		c.triggerQueue, // queue
		"",             // consumer
		false,          // auto-ack (we want manual ack)
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming reconcile triggers", "queue", c.triggerQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping trigger consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ReconcileTriggerFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal trigger", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle trigger",
					"error", err,
					"period", msg.Period().String())
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "Reconcile trigger processed", "period", msg.Period().String())
		}
	}
}

// ConsumeTriggersWithReconnect keeps the trigger consumer alive across
// broker hiccups, backing off exponentially between reconnect attempts.
// It returns when the context is cancelled or on a non-connection error.
func (c *Client) ConsumeTriggersWithReconnect(ctx context.Context, url string, handler func(*ReconcileTriggerMessage) error) error {
	client := c
	for attempt := 0; ; attempt++ {
		err := client.ConsumeReconcileTriggers(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		next, dialErr := NewClient(url, c.exchangeName, c.triggerQueue, c.eventQueue)
		if dialErr != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "error", dialErr)
			continue
		}
		if client != c {
			client.Close()
		}
		client = next
		attempt = -1 // fresh connection resets the backoff
	}
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

// exponentialBackoff returns the wait before reconnect attempt n, capped
// at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << attempt
	if backoff > 30*time.Second || backoff <= 0 {
		return 30 * time.Second
	}
	return backoff
}

// isConnectionError reports whether the error looks like a broken broker
// connection worth a reconnect instead of a permanent failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection closed", "connection reset", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
