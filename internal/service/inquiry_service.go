package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"go.uber.org/zap"
)

// InquiryService accepts inquiries and hands them to the dispatch queue.
type InquiryService struct {
	inquiries repository.InquiryRepository
	ledger    repository.LedgerRepository
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewInquiryService(
	inquiries repository.InquiryRepository,
	ledger repository.LedgerRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*InquiryService, error) {
	if inquiries == nil {
		return nil, fmt.Errorf("inquiry repository is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InquiryService{
		inquiries: inquiries,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Create stores the inquiry, opens its ledger entry and enqueues it. A publish
// failure does not fail the request: the pending entry is picked up by the
// redelivery scanner once it goes stale.
func (s *InquiryService) Create(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error) {
	if inquiry == nil {
		return nil, fmt.Errorf("%w: inquiry is required", domain.ErrValidation)
	}

	inquiry.ID = uuid.NewString()
	inquiry.Type = strings.TrimSpace(inquiry.Type)
	inquiry.CorrelationID = strings.TrimSpace(inquiry.CorrelationID)
	if inquiry.CorrelationID == "" {
		if cid, ok := observability.CorrelationIDFromContext(ctx); ok {
			inquiry.CorrelationID = cid
		} else {
			inquiry.CorrelationID = uuid.NewString()
		}
	}
	inquiry.CreatedAt = s.now().UTC()

	if err := inquiry.Validate(); err != nil {
		return nil, err
	}

	if err := s.inquiries.Create(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("failed to store inquiry: %w", err)
	}
	if _, err := s.ledger.Bootstrap(ctx, inquiry.ID); err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	msg := queue.InquiryMessage{InquiryID: inquiry.ID, CorrelationID: inquiry.CorrelationID}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		observability.WithContextLogger(s.logger, ctx).Error("failed to publish inquiry, left for redelivery",
			zap.String("inquiryId", inquiry.ID),
			zap.Error(err),
		)
	}

	return inquiry, nil
}

func (s *InquiryService) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: inquiry id is required", domain.ErrValidation)
	}
	return s.inquiries.GetByID(ctx, id)
}

// Notifications returns the delivery ledger of an inquiry.
func (s *InquiryService) Notifications(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: inquiry id is required", domain.ErrValidation)
	}
	return s.ledger.Get(ctx, id)
}
