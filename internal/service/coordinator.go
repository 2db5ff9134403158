package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/provider"
	"github.com/kursadbilgin/inquiry-dispatch/internal/ratelimit"
	"github.com/kursadbilgin/inquiry-dispatch/internal/render"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"go.uber.org/zap"
)

const (
	skipAlreadySent      = "already_sent"
	skipAutoReplyOff     = "auto_reply_disabled"
	skipNoRecipient      = "no_recipient"
	failureRender        = "render"
	maxStoredErrorLength = 1000
)

// InquiryRenderer renders the message of one channel for an inquiry.
type InquiryRenderer interface {
	Inquiry(ctx context.Context, channel domain.Channel, event *domain.Inquiry, settings domain.Settings) (*render.Message, error)
}

// Coordinator delivers the admin notification and the optional customer
// auto-reply of an inquiry, consulting and updating the ledger so that a
// channel already marked sent is never delivered again.
type Coordinator struct {
	ledger   repository.LedgerRepository
	renderer InquiryRenderer
	sender   provider.Sender
	limiter  ratelimit.SendLimiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewCoordinator(
	ledger repository.LedgerRepository,
	renderer InquiryRenderer,
	sender provider.Sender,
	limiter ratelimit.SendLimiter,
	logger *zap.Logger,
) (*Coordinator, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		ledger:   ledger,
		renderer: renderer,
		sender:   sender,
		limiter:  limiter,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (c *Coordinator) SetMetrics(metrics *observability.Metrics) {
	if c == nil {
		return
	}
	c.metrics = metrics
}

// Dispatch runs both channels for the event. Channels are independent: a
// failure of one is recorded and returned without affecting the other.
func (c *Coordinator) Dispatch(ctx context.Context, event domain.Inquiry, settings domain.Settings) error {
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := c.ledger.Bootstrap(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to bootstrap ledger: %w", err)
	}

	c.metrics.IncDispatchInFlight()
	defer c.metrics.DecDispatchInFlight()

	logger := observability.WithContextLogger(c.logger, ctx)
	var errs []error

	if entry.IsSent(domain.ChannelAdmin) {
		c.skip(logger, domain.ChannelAdmin, skipAlreadySent)
	} else if err := c.deliver(ctx, logger, domain.ChannelAdmin, &event, settings, adminMessage(&event, settings)); err != nil {
		errs = append(errs, err)
	}

	switch {
	case !settings.CustomerAutoReplyEnabled:
		c.skip(logger, domain.ChannelCustomer, skipAutoReplyOff)
	case event.Email() == "":
		c.skip(logger, domain.ChannelCustomer, skipNoRecipient)
	case entry.IsSent(domain.ChannelCustomer):
		c.skip(logger, domain.ChannelCustomer, skipAlreadySent)
	default:
		if err := c.deliver(ctx, logger, domain.ChannelCustomer, &event, settings, customerMessage(&event, settings)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Coordinator) deliver(
	ctx context.Context,
	logger *zap.Logger,
	channel domain.Channel,
	event *domain.Inquiry,
	settings domain.Settings,
	envelope provider.Message,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", channel, err)
	}

	rendered, err := c.renderer.Inquiry(ctx, channel, event, settings)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", channel, err)
		}
		return c.fail(ctx, logger, channel, event.ID, failureRender, fmt.Errorf("render %s: %w", channel, err))
	}

	if err := c.limiter.Wait(ctx, channel); err != nil {
		return fmt.Errorf("%s: rate limiter wait failed: %w", channel, err)
	}

	envelope.Subject = rendered.Subject
	envelope.HTML = rendered.HTML
	envelope.Text = rendered.Text

	start := c.now()
	resp, sendErr := c.sender.Send(ctx, envelope)
	c.metrics.ObserveProviderSendDuration(channel, c.now().Sub(start))

	if sendErr != nil {
		if ctx.Err() != nil {
			logger.Warn("send abandoned, ledger left untouched",
				zap.String("channel", channel.String()),
				zap.Error(sendErr),
			)
			return fmt.Errorf("%s: %w", channel, ctx.Err())
		}
		return c.fail(ctx, logger, channel, event.ID, provider.Reason(sendErr), fmt.Errorf("send %s: %w", channel, sendErr))
	}

	if err := c.ledger.MarkSent(ctx, event.ID, channel, c.now().UTC()); err != nil {
		logger.Error("message delivered but ledger update failed",
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%s: failed to mark sent: %w", channel, err)
	}

	c.metrics.IncDeliverySent(channel)
	fields := []zap.Field{zap.String("channel", channel.String())}
	if resp != nil && resp.MessageID != "" {
		fields = append(fields, zap.String("messageId", resp.MessageID))
	}
	logger.Info("notification delivered", fields...)
	return nil
}

// fail records cause against the channel. A conflict means another attempt
// already delivered it, which is not an error for this event.
func (c *Coordinator) fail(
	ctx context.Context,
	logger *zap.Logger,
	channel domain.Channel,
	eventID string,
	reason string,
	cause error,
) error {
	markErr := c.ledger.MarkFailed(ctx, eventID, channel, c.now().UTC(), truncate(cause.Error(), maxStoredErrorLength))
	if errors.Is(markErr, domain.ErrConflict) {
		logger.Info("channel already delivered by another attempt",
			zap.String("channel", channel.String()),
			zap.NamedError("attemptError", cause),
		)
		return nil
	}

	c.metrics.IncDeliveryFailed(channel, reason)
	logger.Warn("notification failed",
		zap.String("channel", channel.String()),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	if markErr != nil {
		return errors.Join(cause, fmt.Errorf("%s: failed to mark failed: %w", channel, markErr))
	}
	return cause
}

func (c *Coordinator) skip(logger *zap.Logger, channel domain.Channel, reason string) {
	c.metrics.IncDeliverySkipped(channel, reason)
	logger.Debug("channel skipped",
		zap.String("channel", channel.String()),
		zap.String("reason", reason),
	)
}

func adminMessage(event *domain.Inquiry, settings domain.Settings) provider.Message {
	msg := provider.Message{
		From: sender(settings),
		To:   []provider.Address{{Email: settings.AdminRecipient}},
		Tags: tags(domain.ChannelAdmin, event.Type),
	}
	if email := event.Email(); email != "" {
		msg.ReplyTo = &provider.Address{Email: email, Name: event.Name()}
	} else {
		msg.ReplyTo = replyTo(settings)
	}
	return msg
}

func customerMessage(event *domain.Inquiry, settings domain.Settings) provider.Message {
	return provider.Message{
		From:    sender(settings),
		To:      []provider.Address{{Email: event.Email(), Name: event.Name()}},
		ReplyTo: replyTo(settings),
		Tags:    tags(domain.ChannelCustomer, event.Type),
	}
}

func sender(settings domain.Settings) provider.Address {
	return provider.Address{Email: settings.SenderEmail, Name: settings.SenderName}
}

func replyTo(settings domain.Settings) *provider.Address {
	if strings.TrimSpace(settings.ReplyToEmail) == "" {
		return nil
	}
	return &provider.Address{Email: settings.ReplyToEmail, Name: settings.ReplyToName}
}

func tags(channel domain.Channel, inquiryType string) []string {
	out := []string{"inquiry", channel.String()}
	if t := strings.ToLower(strings.TrimSpace(inquiryType)); t != "" {
		out = append(out, t)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
