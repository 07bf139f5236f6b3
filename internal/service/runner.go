package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultResearchInterval = 5 * time.Minute

// ResearchRunner drives the research cycle on a periodic schedule. It is
// the in-process stand-in for an external scheduler; deployments with their
// own scheduler can skip starting it and call RunBatch directly.
type ResearchRunner struct {
	research *ResearchService
	logger   *zap.Logger

	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewResearchRunner(research *ResearchService, logger *zap.Logger) *ResearchRunner {
	return &ResearchRunner{
		research:  research,
		logger:    logger,
		interval:  defaultResearchInterval,
		batchSize: DefaultBatchSize,
		stopCh:    make(chan struct{}),
	}
}

func (r *ResearchRunner) SetInterval(d time.Duration) {
	if d > 0 {
		r.interval = d
	}
}

func (r *ResearchRunner) SetBatchSize(n int) {
	if n > 0 {
		r.batchSize = n
	}
}

// Start runs the research cycle in a background goroutine.
func (r *ResearchRunner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("research runner started",
			zap.Duration("interval", r.interval),
			zap.Int("batch_size", r.batchSize))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if _, err := r.research.RunBatch(ctx, BatchOptions{Limit: r.batchSize}); err != nil {
					r.logger.Error("research cycle failed", zap.Error(err))
				}
				cancel()
			case <-r.stopCh:
				r.logger.Info("research runner stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the runner.
func (r *ResearchRunner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}
