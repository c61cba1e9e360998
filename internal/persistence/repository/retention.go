package repository

import (
	"context"
	"time"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/logging"
)

// RetentionSweeper periodically removes audit entries older than the
// configured retention window.
type RetentionSweeper struct {
	repo      domain.RoomAuditRepository
	logger    logging.Logger
	retention time.Duration
	interval  time.Duration
}

func NewRetentionSweeper(repo domain.RoomAuditRepository, logger logging.Logger, retention time.Duration) *RetentionSweeper {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &RetentionSweeper{
		repo:      repo,
		logger:    logger,
		retention: retention,
		interval:  time.Hour,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	if err := s.repo.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error(logging.Mongo, logging.ExternalService, "audit retention sweep failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
