package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type RabbitMQConsumer struct {
	client        *RabbitMQ
	prefetch      int
	maxDeliveries int
	logger        *zap.Logger
}

// acknowledger is the subset of amqp.Delivery the consumer settles with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxDeliveries := DefaultTopology().MaxDeliveries
	if client != nil {
		maxDeliveries = client.MaxDeliveries()
	}

	return &RabbitMQConsumer{
		client:        client,
		prefetch:      prefetch,
		maxDeliveries: maxDeliveries,
		logger:        logger,
	}
}

func (c *RabbitMQConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		WorkQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", WorkQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := c.handleDelivery(ctx, d.Body, d.Headers, &d, handler); err != nil {
				return err
			}
		}
	}
}

func (c *RabbitMQConsumer) handleDelivery(
	ctx context.Context,
	body []byte,
	headers amqp.Table,
	ack acknowledger,
	handler MessageHandler,
) error {
	var msg InquiryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Warn("dropping message: invalid JSON", zap.Error(err))
		if ackErr := ack.Ack(false); ackErr != nil {
			return fmt.Errorf("failed to drop invalid message: %w", ackErr)
		}
		return nil
	}

	if err := msg.Validate(); err != nil {
		c.logger.Warn("dropping message: validation failed", zap.Error(err))
		if ackErr := ack.Ack(false); ackErr != nil {
			return fmt.Errorf("failed to drop invalid payload: %w", ackErr)
		}
		return nil
	}

	if err := handler(ctx, msg); err != nil {
		if ctx.Err() != nil {
			// Shutdown: hand the message back untouched.
			if nackErr := ack.Nack(false, true); nackErr != nil {
				return fmt.Errorf("failed to requeue on shutdown: %w", nackErr)
			}
			return nil
		}

		deliveries := deliveryCount(headers)
		if deliveries >= c.maxDeliveries {
			c.logger.Error("dropping message: delivery limit reached",
				zap.Error(err),
				zap.String("inquiryId", msg.InquiryID),
				zap.String("correlationId", msg.CorrelationID),
				zap.Int("deliveries", deliveries),
			)
			if ackErr := ack.Ack(false); ackErr != nil {
				return fmt.Errorf("failed to drop exhausted message: %w", ackErr)
			}
			return nil
		}

		c.logger.Warn("handler failed, scheduling retry",
			zap.Error(err),
			zap.String("inquiryId", msg.InquiryID),
			zap.Int("deliveries", deliveries),
		)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
		return nil
	}

	if err := ack.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}

	return nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
