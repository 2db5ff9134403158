package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Dispatcher delivers the notifications of one inquiry.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.Inquiry, settings domain.Settings) error
}

// SettingsSource provides the settings snapshot used for one dispatch.
type SettingsSource interface {
	Snapshot(ctx context.Context) (domain.Settings, error)
}

type WorkerService struct {
	inquiries   repository.InquiryRepository
	settings    SettingsSource
	dispatcher  Dispatcher
	consumer    queue.Consumer
	logger      *zap.Logger
	concurrency int
}

func NewWorkerService(
	inquiries repository.InquiryRepository,
	settings SettingsSource,
	dispatcher Dispatcher,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if inquiries == nil {
		return nil, fmt.Errorf("inquiry repository is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		inquiries:   inquiries,
		settings:    settings,
		dispatcher:  dispatcher,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start runs concurrency consumers of the inquiry queue until ctx is done.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started", zap.Int("workerId", workerID))

			if err := s.consumer.Consume(groupCtx, s.processMessage); err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.InquiryMessage) error {
	event, err := s.inquiries.GetByID(ctx, msg.InquiryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("inquiry not found, dropping message",
				zap.String("inquiryId", msg.InquiryID),
			)
			return nil
		}
		return fmt.Errorf("failed to load inquiry: %w", err)
	}

	correlationID := msg.CorrelationID
	if correlationID == "" {
		correlationID = event.CorrelationID
	}
	ctx = observability.WithInquiryID(observability.WithCorrelationID(ctx, correlationID), event.ID)

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return err
	}

	if err := s.dispatcher.Dispatch(ctx, *event, settings); err != nil {
		return fmt.Errorf("dispatch inquiry %s: %w", event.ID, err)
	}

	observability.WithContextLogger(s.logger, ctx).Debug("inquiry dispatched")
	return nil
}
