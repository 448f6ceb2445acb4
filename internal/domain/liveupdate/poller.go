package liveupdate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the fallback poller invalidates the detail view.
const DefaultPollInterval = 10 * time.Second

// poller runs tick on a fixed interval until stopped. Start and Stop are
// each effective once.
type poller struct {
	interval  time.Duration
	tick      func(ctx context.Context)
	log       zerolog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	onRun     func(delta int32)
}

func newPoller(interval time.Duration, tick func(ctx context.Context), log zerolog.Logger, onRun func(delta int32)) *poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &poller{
		interval: interval,
		tick:     tick,
		log:      log,
		done:     make(chan struct{}),
		onRun:    onRun,
	}
}

func (p *poller) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		if p.onRun != nil {
			p.onRun(1)
		}
		go p.run()
		p.log.Debug().Dur("interval", p.interval).Msg("fallback polling started")
	})
}

// Stop returns after the polling goroutine has exited.
func (p *poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.log.Debug().Msg("fallback polling stopped")
	})
}

func (p *poller) run() {
	defer p.wg.Done()
	if p.onRun != nil {
		defer p.onRun(-1)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}
