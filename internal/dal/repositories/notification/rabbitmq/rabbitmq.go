package rabbitmqrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/notification"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type publisher interface {
	Publish(queue string, msg amqp.Publishing) error
}

// NotificationRabbitMQRepository enqueues order notifications for the notifier process.
type NotificationRabbitMQRepository struct {
	client publisher
	queue  string
}

func NewNotificationRabbitMQRepository(client publisher, queue string) *NotificationRabbitMQRepository {
	return &NotificationRabbitMQRepository{
		client: client,
		queue:  queue,
	}
}

// PublishOrderCreated enqueues the order id together with the caller's trace context.
func (r *NotificationRabbitMQRepository) PublishOrderCreated(ctx context.Context, orderID uuid.UUID) error {
	body, err := json.Marshal(notification.OrderCreated{
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := amqp.Table{}
	for k, v := range carrier {
		headers[k] = v
	}

	err = r.client.Publish(r.queue, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   orderID.String(),
		Timestamp:   time.Now().UTC(),
		Headers:     headers,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification for order %s: %w", orderID, err)
	}

	return nil
}
