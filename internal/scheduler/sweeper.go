package scheduler

import (
	"context"
	"time"

	"github.com/mesaops/comanda/internal/config"
	"github.com/mesaops/comanda/internal/observability/metrics"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sweepLockKey   = "comanda:mode_sweep:lock"
	sweepBatchSize = 100
)

type SweeperParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Modes  opmodedomain.Service
	Locker *Locker `optional:"true"`
}

// Sweeper periodically settles modes whose deadline has already passed.
// Reads are always correct without it; the sweep only keeps the stored rows
// and the transition metrics from lagging behind wall-clock expiry.
type Sweeper struct {
	log      *zap.Logger
	modes    opmodedomain.Service
	locker   *Locker
	interval time.Duration
}

func NewSweeper(p SweeperParams) *Sweeper {
	interval := time.Duration(p.Config.Sweep.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		log:      p.Log.Named("scheduler.sweeper"),
		modes:    p.Modes,
		locker:   p.Locker,
		interval: interval,
	}
}

// RunOnce performs a single sweep pass. When a locker is configured, only
// one instance across the deployment does the pass; everyone else skips.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
		if err != nil {
			return err
		}
		if !acquired {
			metrics.Modes().IncSweepLockContended()
			s.log.Debug("sweep skipped, lock held elsewhere")
			return nil
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLockKey, token); err != nil {
				s.log.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	metrics.Modes().IncSweepRun()
	expired, err := s.modes.SweepExpired(ctx, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(expired) > 0 {
		s.log.Info("sweep settled expired modes", zap.Int("count", len(expired)))
	}
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("sweep pass failed", zap.Error(err))
			}
		}
	}
}
