package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RetentionPurger deletes expired sessions on a fixed interval.
type RetentionPurger struct {
	purger   SessionPurger
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRetentionPurger(purger SessionPurger, interval time.Duration, logger *zap.Logger) *RetentionPurger {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionPurger{
		purger:   purger,
		interval: interval,
		logger:   logger.Named("retention_purger"),
	}
}

// Start runs one purge immediately and then one per interval until Close.
func (p *RetentionPurger) Start(ctx context.Context) {
	if p.cancel != nil {
		return
	}

	purgeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.runOnce(purgeCtx)
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				p.runOnce(purgeCtx)
			}
		}
	}()
}

func (p *RetentionPurger) runOnce(ctx context.Context) {
	if _, err := p.purger.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("purge expired sessions failed", zap.Error(err))
	}
}

func (p *RetentionPurger) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
