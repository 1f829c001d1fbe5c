package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/MarketApp/internal/config"
	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client представляет собой клиент RabbitMQ
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

// NewClient создает и инициализирует новый клиент RabbitMQ
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client := &Client{logger: logger}

	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	client.conn = conn
	logger.Info("connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	client.channel = ch

	// Объявление очереди идемпотентно
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName, // name
		true,                           // durable - очередь будет сохраняться при перезапуске RabbitMQ
		false,                          // delete when unused
		false,                          // exclusive
		false,                          // no-wait
		nil,                            // arguments
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}
	client.queue = q
	logger.Info("queue declared", "queue", q.Name, "messages", q.Messages)

	return client, nil
}

// Close закрывает соединение и канал RabbitMQ
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}

// PublishPhotoEvent публикует событие о фотографии в очередь.
// Реализует ports.PhotoEventPublisher.
func (c *Client) PublishPhotoEvent(ctx context.Context, payload payloads.PhotoEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload to JSON: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         payload.Type,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	c.logger.Debug("photo event published", "queue", c.queue.Name, "type", payload.Type, "photo_id", payload.PhotoID)
	return nil
}

// StartConsumingPhotoEvents начинает потребление сообщений из очереди.
// Реализует ports.PhotoEventConsumer.
func (c *Client) StartConsumingPhotoEvents(ctx context.Context, handler func(context.Context, payloads.PhotoEventPayload) error) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack (подтверждаем вручную)
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("consumer registered", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("RabbitMQ channel closed, stopping consumer")
					return
				}
				c.handleDelivery(ctx, msg, handler)
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping RabbitMQ consumer")
				return
			}
		}
	}()

	return nil
}

// acknowledger - часть amqp.Delivery, нужная для подтверждения
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(context.Context, payloads.PhotoEventPayload) error) {
	processDelivery(ctx, msg.Body, msg, handler, c.logger)
}

// processDelivery разбирает сообщение, вызывает обработчик и подтверждает сообщение.
// Битые сообщения отбрасываются без возврата в очередь, ошибки обработки - возвращаются.
func processDelivery(
	ctx context.Context,
	body []byte,
	ack acknowledger,
	handler func(context.Context, payloads.PhotoEventPayload) error,
	logger *slog.Logger,
) {
	start := time.Now()

	var payload payloads.PhotoEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("failed to unmarshal message", "error", err, "body", string(body))
		if err := ack.Nack(false, false); err != nil {
			logger.Error("failed to nack malformed message", "error", err)
		}
		return
	}

	if err := handler(ctx, payload); err != nil {
		logger.Error("failed to process photo event",
			"type", payload.Type,
			"photo_id", payload.PhotoID,
			"error", err,
		)
		if err := ack.Nack(false, true); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := ack.Ack(false); err != nil {
		logger.Error("failed to ack message", "error", err)
		return
	}
	logger.Info("photo event processed",
		"type", payload.Type,
		"photo_id", payload.PhotoID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
