package queue

import (
	"context"
	"fmt"
	"strings"
)

// Publisher publishes inquiry messages to the work queue.
type Publisher interface {
	Publish(ctx context.Context, msg InquiryMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg InquiryMessage) error

// Consumer consumes inquiry messages from the work queue.
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

const (
	// WorkQueue receives one message per accepted inquiry.
	WorkQueue = "inquiries"
	// RetryQueue holds failed deliveries until their TTL expires.
	RetryQueue = "inquiries.retry"

	retryExchangeName = "inquiries.dlx"
)

// InquiryMessage is the broker payload for inquiry dispatch.
type InquiryMessage struct {
	InquiryID     string `json:"inquiryId"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (m InquiryMessage) Validate() error {
	if strings.TrimSpace(m.InquiryID) == "" {
		return fmt.Errorf("inquiryId is required")
	}
	return nil
}

// Topology configures the retry loop between the work and retry queues.
type Topology struct {
	// RetryDelayMs is the x-message-ttl of the retry queue.
	RetryDelayMs int32
	// MaxDeliveries caps how many times a message is handed to the handler.
	MaxDeliveries int
}

// DefaultTopology returns a 30s retry delay and 8 deliveries.
func DefaultTopology() Topology {
	return Topology{RetryDelayMs: 30000, MaxDeliveries: 8}
}

func (t Topology) normalize() Topology {
	def := DefaultTopology()
	if t.RetryDelayMs <= 0 {
		t.RetryDelayMs = def.RetryDelayMs
	}
	if t.MaxDeliveries <= 0 {
		t.MaxDeliveries = def.MaxDeliveries
	}
	return t
}
