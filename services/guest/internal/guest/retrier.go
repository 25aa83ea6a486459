package guest

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
)

// Retrier periodically resends rounds the backend failed to acknowledge.
type Retrier struct {
	terminal    *Terminal
	interval    time.Duration
	maxAttempts int
	logger      aqm.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRetrier(terminal *Terminal, interval time.Duration, maxAttempts int, logger aqm.Logger) *Retrier {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &Retrier{
		terminal:    terminal,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func NewRetrierFromConfig(config *aqm.Config, terminal *Terminal, logger aqm.Logger) *Retrier {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return NewRetrier(terminal,
		durationOr(config, logger, "orders.retry.interval", DefaultRetryInterval),
		intOr(config, logger, "orders.retry.max_attempts", DefaultRetryAttempts),
		logger)
}

func (r *Retrier) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(runCtx, r.done)
	r.logger.Info("round retrier started", "interval", r.interval.String(), "max_attempts", r.maxAttempts)
	return nil
}

func (r *Retrier) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// RunOnce performs a single retry pass.
func (r *Retrier) RunOnce(ctx context.Context) (retried, confirmed int) {
	retried, confirmed = r.terminal.RetryFailed(ctx, r.maxAttempts)
	if retried > 0 {
		r.logger.Info("retried failed rounds", "retried", retried, "confirmed", confirmed)
	}
	return retried, confirmed
}

func (r *Retrier) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
