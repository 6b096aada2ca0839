package viewstate

import (
	"context"
	"sync"
	"time"
)

// poller calls fn on every tick until stopped. stop only cancels, so it is
// safe to call from inside fn; the owner's WaitGroup tracks the goroutine.
type poller struct {
	key    string
	cancel context.CancelFunc
}

func startPoller(parent context.Context, wg *sync.WaitGroup, key string, interval time.Duration, fn func(ctx context.Context)) *poller {
	ctx, cancel := context.WithCancel(parent)
	p := &poller{key: key, cancel: cancel}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return p
}

func (p *poller) stop() {
	if p != nil {
		p.cancel()
	}
}
