// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-storefront/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }
func (Nop) Close() error                                                { return nil }

type RabbitMQ struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	channel  *amqp.Channel
	exchange string
}

func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQ{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishOrderEvent routes the event as "order.<type>". Cancellations are published with a
// higher priority.
func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	priority := uint8(5)
	if ev.Status == models.StatusCancelled {
		priority = 8
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		MessageId:    ev.OrderID + ":" + ev.Type,
		Priority:     priority,
		Body:         body,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		"order."+ev.Type,
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
