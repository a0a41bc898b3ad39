package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically releases expired held reservations so a crashed
// orchestrator cannot strand stock past the hold TTL.
type Sweeper struct {
	svc       *Service
	log       *zap.Logger
	interval  time.Duration
	batchSize int
}

func NewSweeper(svc *Service, log *zap.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		svc:       svc,
		log:       log,
		interval:  interval,
		batchSize: 100,
	}
}

// Run sweeps until the context is cancelled. A failed sweep is logged and
// retried next tick; expiry is not time-critical beyond the hold TTL.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for {
		released, err := s.svc.ReleaseExpired(ctx, s.batchSize)
		if err != nil {
			s.log.Error("release expired reservations", zap.Error(err))
			return
		}
		if released > 0 {
			s.log.Info("released expired reservations", zap.Int("count", released))
		}
		// Keep draining until a short batch; a long outage can leave more
		// expired holds than one batch covers.
		if released < s.batchSize {
			return
		}
	}
}
