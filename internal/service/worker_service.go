package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/observability"
	"github.com/JiminSongSoftware/gagyo-push/internal/provider"
	"github.com/JiminSongSoftware/gagyo-push/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency   = 1
	defaultMaxAttempts     = 5
	baseUnreachableBackoff = 2 * time.Second
	maxUnreachableBackoff  = 60 * time.Second
)

// PushDispatcher is the worker's view of the dispatch engine.
type PushDispatcher interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error)
}

// WorkerService consumes the dispatch queue and invokes the Dispatcher. It
// is the "caller" the dispatch contract talks about: rate-limited and
// provider-unreachable requests are requeued here with a bounded attempt
// budget, never inside the Dispatcher.
type WorkerService struct {
	dispatcher  PushDispatcher
	consumer    queue.Consumer
	publisher   queue.Publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewWorkerService(
	dispatcher PushDispatcher,
	consumer queue.Consumer,
	publisher queue.Publisher,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		dispatcher:  dispatcher,
		consumer:    consumer,
		publisher:   publisher,
		logger:      logger,
		concurrency: concurrency,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepWithContext,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the dispatch queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("dispatch worker started", zap.Int("workerId", workerID))

			err := s.consumer.Consume(groupCtx, queue.DispatchQueue, s.processMessage)
			if err != nil {
				s.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.DispatchMessage) error {
	s.metrics.IncWorkerInFlight()
	defer s.metrics.DecWorkerInFlight()

	logger := observability.WithTenant(s.logger, msg.Request.TenantID)

	_, err := s.dispatcher.Dispatch(ctx, msg.Request)
	if err == nil {
		return nil
	}

	var rateErr *domain.RateLimitError
	switch {
	case errors.Is(err, domain.ErrValidation):
		// Malformed requests can never succeed; drop without redelivery.
		logger.Warn("dropping invalid dispatch message",
			zap.String("messageId", msg.ID),
			zap.Error(err),
		)
		return nil

	case errors.As(err, &rateErr):
		return s.requeue(ctx, msg, rateErr.RetryAfter, "rate_limited", logger)

	case errors.Is(err, domain.ErrProviderUnreachable):
		return s.requeue(ctx, msg, s.unreachableBackoff(msg.Attempt), "provider_unreachable", logger)

	case provider.IsTransient(err):
		return s.requeue(ctx, msg, s.unreachableBackoff(msg.Attempt), "transient", logger)

	default:
		// Unknown failure: let the broker redeliver.
		return fmt.Errorf("dispatch failed: %w", err)
	}
}

// requeue waits out the backoff and republishes with an incremented attempt
// counter. An exhausted message goes to the dead-letter queue so an operator
// can inspect and replay it.
func (s *WorkerService) requeue(
	ctx context.Context,
	msg queue.DispatchMessage,
	wait time.Duration,
	reason string,
	logger *zap.Logger,
) error {
	next := msg
	next.Attempt++

	if next.Attempt >= s.maxAttempts {
		logger.Error("dispatch attempts exhausted, dead-lettering",
			zap.String("messageId", msg.ID),
			zap.String("reason", reason),
			zap.Int("attempts", next.Attempt),
		)
		if err := s.publisher.Publish(ctx, queue.DispatchDLQ, next); err != nil {
			return fmt.Errorf("failed to dead-letter exhausted message: %w", err)
		}
		return nil
	}

	if wait > 0 {
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}

	logger.Info("requeueing dispatch message",
		zap.String("messageId", msg.ID),
		zap.String("reason", reason),
		zap.Int("attempt", next.Attempt),
		zap.Duration("waited", wait),
	)

	if err := s.publisher.Publish(ctx, queue.DispatchQueue, next); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return nil
}

func (s *WorkerService) unreachableBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	backoff := baseUnreachableBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxUnreachableBackoff {
			return maxUnreachableBackoff
		}
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
