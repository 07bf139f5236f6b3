package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/domain"
)

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultClaimLease     = 30 * time.Minute
	defaultDoubtRetention = 30 * 24 * time.Hour
)

// LeaseSweeper repairs the two queue states nothing else cleans up: items
// claimed by a worker that died get requeued after their lease runs out,
// and pending items past the retention window are expired.
type LeaseSweeper struct {
	doubts domain.DoubtQueueStore
	logger *zap.Logger

	interval  time.Duration
	lease     time.Duration
	retention time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewLeaseSweeper(doubts domain.DoubtQueueStore, logger *zap.Logger) *LeaseSweeper {
	return &LeaseSweeper{
		doubts:    doubts,
		logger:    logger,
		interval:  defaultSweepInterval,
		lease:     defaultClaimLease,
		retention: defaultDoubtRetention,
		stopCh:    make(chan struct{}),
	}
}

func (s *LeaseSweeper) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *LeaseSweeper) SetLease(d time.Duration) {
	if d > 0 {
		s.lease = d
	}
}

func (s *LeaseSweeper) SetRetention(d time.Duration) {
	if d > 0 {
		s.retention = d
	}
}

// Start runs the sweeper on a periodic schedule in a background goroutine.
func (s *LeaseSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("lease sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("lease", s.lease),
			zap.Duration("retention", s.retention))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.Run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("lease sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *LeaseSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Run performs one sweep. Exposed so operators can trigger it on demand.
func (s *LeaseSweeper) Run(ctx context.Context) {
	now := time.Now().UTC()

	requeued, err := s.doubts.RequeueStaleClaims(ctx, now.Add(-s.lease))
	if err != nil {
		s.logger.Error("failed to requeue stale claims", zap.Error(err))
	} else if requeued > 0 {
		s.logger.Info("requeued stale claims", zap.Int64("count", requeued))
	}

	expired, err := s.doubts.ExpirePending(ctx, now.Add(-s.retention))
	if err != nil {
		s.logger.Error("failed to expire pending doubts", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("expired unclaimed doubts", zap.Int64("count", expired))
	}
}
