package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads messages from a durable queue and passes them to a Handler,
// reconnecting with backoff whenever the broker goes away.
type Consumer struct {
	url    string
	queue  string
	handle Handler
}

func NewConsumer(url, queue string, handle Handler) *Consumer {
	return &Consumer{url: url, queue: queue, handle: handle}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("ERROR [mail.Consumer] failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("ERROR [mail.Consumer] consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("ERROR [mail.Consumer] set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleDelivery(ctx, d.Body); err != nil {
				log.Printf("ERROR [mail.Consumer] handle message failed: %v", err)
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

// HandleDelivery decodes body and runs the handler.
func (c *Consumer) HandleDelivery(ctx context.Context, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal mail message: %w", err)
	}
	if msg.To == "" {
		return errors.New("mail message has no recipient")
	}
	return c.handle(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
