package service

import (
	"context"
	"fmt"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/observability"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Hour
	defaultStaleAfter    = 270 * 24 * time.Hour
)

// StaleTokenStore revokes tokens that have gone unused for too long.
type StaleTokenStore interface {
	RevokeUnusedSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically revokes tokens whose lastUsedAt has fallen behind the
// staleness horizon. Revocation only: a device that comes back re-registers
// and the row un-revokes.
type Sweeper struct {
	tokens     StaleTokenStore
	logger     *zap.Logger
	metrics    *observability.Metrics
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewSweeper(
	tokens StaleTokenStore,
	interval time.Duration,
	staleAfter time.Duration,
	logger *zap.Logger,
) (*Sweeper, error) {
	if tokens == nil {
		return nil, fmt.Errorf("stale token store is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		tokens:     tokens,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

func (s *Sweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Sweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("initial stale token sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("stale token sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.staleAfter)

	revoked, err := s.tokens.RevokeUnusedSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to revoke stale tokens: %w", err)
	}

	if revoked > 0 {
		for i := int64(0); i < revoked; i++ {
			s.metrics.IncTokenRevoked("stale")
		}
		s.logger.Info("revoked stale device tokens",
			zap.Int64("count", revoked),
			zap.Time("cutoff", cutoff),
		)
	}

	return nil
}
