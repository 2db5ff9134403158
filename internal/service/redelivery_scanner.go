package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRedeliveryScanInterval = time.Minute
	defaultRedeliveryStaleAfter   = 10 * time.Minute
	defaultRedeliveryScanLimit    = 100
)

// RedeliveryScanner periodically republishes inquiries whose ledger still has
// a failed channel, or an admin channel stuck pending, once they have been
// left alone for staleAfter.
type RedeliveryScanner struct {
	ledger      repository.LedgerRepository
	publisher   queue.Publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	staleAfter  time.Duration
	maxAttempts int
	limit       int
	now         func() time.Time
}

func NewRedeliveryScanner(
	ledger repository.LedgerRepository,
	publisher queue.Publisher,
	interval time.Duration,
	staleAfter time.Duration,
	maxAttempts int,
	logger *zap.Logger,
) (*RedeliveryScanner, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRedeliveryScanInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultRedeliveryStaleAfter
	}
	if maxAttempts <= 0 {
		maxAttempts = queue.DefaultTopology().MaxDeliveries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedeliveryScanner{
		ledger:      ledger,
		publisher:   publisher,
		logger:      logger,
		interval:    interval,
		staleAfter:  staleAfter,
		maxAttempts: maxAttempts,
		limit:       defaultRedeliveryScanLimit,
		now:         time.Now,
	}, nil
}

func (s *RedeliveryScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *RedeliveryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.scan(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("redelivery scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("redelivery scan failed", zap.Error(err))
			}
		}
	}
}

// scan publishes one batch of redeliverable inquiries and returns how many
// were published.
func (s *RedeliveryScanner) scan(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	entries, err := s.ledger.ListRedeliverable(ctx, cutoff, s.maxAttempts, s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list redeliverable inquiries: %w", err)
	}

	published := 0
	for i := range entries {
		entry := entries[i]
		msg := queue.InquiryMessage{InquiryID: entry.EventID}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return published, ctx.Err()
			}
			s.logger.Error("failed to republish inquiry",
				zap.String("inquiryId", entry.EventID),
				zap.Error(err),
			)
			continue
		}

		published++
		s.metrics.IncRedeliveryPublished()
		s.logger.Info("inquiry republished",
			zap.String("inquiryId", entry.EventID),
			zap.String("adminStatus", entry.Admin.Status.String()),
			zap.String("customerStatus", entry.Customer.Status.String()),
		)
	}

	return published, nil
}
