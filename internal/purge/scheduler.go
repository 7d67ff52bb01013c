// Package purge removes expired secrets on a fixed interval. Purge is a
// storage-reclamation guarantee, not the expiry enforcement point: reveal
// re-checks expiry, so a record surviving until the next sweep is harmless.
package purge

import (
	"context"
	"sync"
	"time"

	"whisper.share/internal/logging"
	"whisper.share/internal/store"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 3600 * time.Second

type Scheduler struct {
	store    store.Store
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(s store.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    s,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock overrides the scheduler clock. Intended for tests.
func (p *Scheduler) WithClock(now func() time.Time) *Scheduler {
	p.now = now
	return p
}

// Start runs one immediate sweep and then sweeps every interval until Stop.
// Sweep failures are logged and never fatal. Calling Start twice is a no-op
// until Stop is called.
func (p *Scheduler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
}

// Stop cancels the loop and waits for any in-flight sweep to finish, so
// cancellation never fires mid-transaction. No sweeps run afterward.
func (p *Scheduler) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Startup sweep is best-effort; a failure must not block serving.
	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Scheduler) sweep(ctx context.Context) {
	count, err := p.store.DeleteExpired(ctx, p.now().UTC())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Errorf("purge sweep failed: %v", err)
		return
	}
	if count > 0 {
		logging.Infof("purged %d expired secrets", count)
	}
}
