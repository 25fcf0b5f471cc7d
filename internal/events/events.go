// Package events publishes click events for out-of-band analytics. Delivery
// is advisory: the registry's own click history is the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/linkmap/linkmap/internal/model"
)

// Publisher hands a click event to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, event model.ClickEvent) error
}

// Nop drops every event. Used in tests and queue-less deployments.
type Nop struct{}

func (Nop) Publish(context.Context, model.ClickEvent) error { return nil }

// AMQPPublisher sends click events to a durable RabbitMQ queue as JSON.
type AMQPPublisher struct {
	ch    *amqp091.Channel
	queue string
}

// NewAMQPPublisher declares the queue and returns the publisher.
func NewAMQPPublisher(ch *amqp091.Channel, queue string) (*AMQPPublisher, error) {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return &AMQPPublisher{ch: ch, queue: queue}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event model.ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}
	err = p.ch.PublishWithContext(
		ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}
