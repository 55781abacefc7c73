package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/rabbitmq"
	"github.com/dunya-jewellery/shop/internal/service/models/notification"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

// DefaultQueue is used when rabbitmq.notify_queue is not configured.
const DefaultQueue = "shop.orders.notify"

var errEmptyOrderID = errors.New("message has no order id")

// service represents the service layer interface.
type service interface {
	ProcessNotification(ctx context.Context, id uuid.UUID) error
}

type broker interface {
	DeclareQueueWithDeadLetter(name string) (amqp.Queue, error)
	Qos(prefetch int) error
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
}

// Consumer delivers queued order notifications.
type Consumer struct {
	client      broker
	service     service
	queue       amqp.Queue
	concurrency int
	stop        chan struct{}
	done        chan struct{}
	finished    chan struct{}
}

// NewConsumer creates a new Consumer and declares its queue with a dead letter queue.
func NewConsumer(client broker, service service) *Consumer {
	queue, err := client.DeclareQueueWithDeadLetter(QueueName())
	if err != nil {
		panic(err)
	}

	concurrency := viper.GetInt("rabbitmq.concurrency")
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Consumer{
		client:      client,
		service:     service,
		queue:       queue,
		concurrency: concurrency,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
	}
}

// QueueName returns the configured notification queue.
func QueueName() string {
	if name := viper.GetString("rabbitmq.notify_queue"); name != "" {
		return name
	}

	return DefaultQueue
}

// Run consumes messages until Shutdown is called or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.finished)

	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "shop-notifier"
	}

	if err := c.client.Qos(c.concurrency); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	go func() {
		defer close(c.done)

		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")

					return
				}

				g.Go(func() error {
					c.processMessage(ctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done

	return g.Wait()
}

// processMessage acks handled messages. Messages that cannot be decoded or
// processed are rejected without requeue and end up in the dead letter queue.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headersCarrier(msg.Headers))
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	orderID, err := decode(msg.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode notification", "delivery_tag", msg.DeliveryTag, "error", err)
		reject(ctx, msg)

		return
	}
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if err := c.service.ProcessNotification(ctx, orderID); err != nil {
		slog.ErrorContext(ctx, "Failed to process notification", "order_id", orderID, "error", err)
		reject(ctx, msg)

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.ErrorContext(ctx, "Failed to ack message", "order_id", orderID, "error", err)

		return
	}

	slog.InfoContext(ctx, "Message processed successfully", "order_id", orderID)
}

func decode(body []byte) (uuid.UUID, error) {
	var event notification.OrderCreated
	if err := json.Unmarshal(body, &event); err != nil {
		return uuid.Nil, err
	}
	if event.OrderID == uuid.Nil {
		return uuid.Nil, errEmptyOrderID
	}

	return event.OrderID, nil
}

func reject(ctx context.Context, msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		slog.ErrorContext(ctx, "Failed to nack message", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}

func headersCarrier(headers amqp.Table) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}

	return carrier
}

// Shutdown stops taking new messages and waits for in-flight deliveries.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.finished:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
