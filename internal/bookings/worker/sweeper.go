package worker

import (
	"context"
	"time"

	"maharaja/pkg/logger"
)

const sweepBatchSize = 100

// Expirer cancels pending bookings that never received a payment.
type Expirer interface {
	ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// PendingSweeper periodically expires unpaid pending bookings so they stop
// blocking their resource.
type PendingSweeper struct {
	expirer  Expirer
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger
}

func NewPendingSweeper(expirer Expirer, ttl, interval time.Duration, log *logger.Logger) *PendingSweeper {
	return &PendingSweeper{
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		log:      log,
	}
}

func (s *PendingSweeper) Name() string {
	return "pending-sweeper"
}

func (s *PendingSweeper) Run(ctx context.Context) error {
	s.log.Info("Pending sweeper started", "ttl", s.ttl, "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Pending sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep drains every full batch before waiting for the next tick.
func (s *PendingSweeper) sweep(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := s.expirer.ExpirePending(ctx, s.ttl, sweepBatchSize)
		if err != nil {
			s.log.Error("Pending sweep failed", "error", err)
			return
		}
		if n < sweepBatchSize {
			return
		}
	}
}
