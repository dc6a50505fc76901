package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/events"
	"github.com/fystack/stacks-connector/pkg/retry"
)

const (
	maxRetryInterval = 2 * time.Second
	pollRetries      = 2

	DefaultPollInterval = time.Minute
)

// Runner polls on an interval and publishes every fired item.
type Runner struct {
	poller   *Poller
	emitter  events.Emitter
	interval time.Duration
	network  string
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner uses DefaultPollInterval when interval is not positive.
func NewRunner(poller *Poller, emitter events.Emitter, interval time.Duration, network string) *Runner {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	cfg := poller.Config()
	return &Runner{
		poller:   poller,
		emitter:  emitter,
		interval: interval,
		network:  network,
		logger: logger.With(
			slog.String("trigger", cfg.ID),
			slog.String("event", string(cfg.Event)),
		),
	}
}

// RunOnce polls once, retrying transient failures, and emits what fired.
// A failed poll emits an error event and returns the error.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	cfg := r.poller.Config()

	var fired int
	job := func() error {
		items, err := r.poller.Poll(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			ev := events.NewTriggerEvent(cfg.ID, string(cfg.Event), r.network, item.JSON)
			if err := r.emitter.Emit(ev); err != nil {
				// state already advanced; re-polling would not refire
				return retry.Permanent(fmt.Errorf("emit %s: %w", cfg.Event, err))
			}
			fired++
		}
		return nil
	}

	err := retry.Exponential(ctx, job, retry.ExponentialConfig{
		InitialInterval: min(maxRetryInterval, max(r.interval/4, time.Millisecond)),
		MaxElapsedTime:  max(r.interval, time.Second),
		MaxRetries:      pollRetries,
		OnRetry: func(err error, next time.Duration) {
			r.logger.Debug("Retrying poll", "err", err, "next_retry_in", next)
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fired, err
		}
		r.logger.Error("Poll failed", "err", err)
		_ = r.emitter.Emit(events.NewErrorEvent(cfg.ID, string(cfg.Event), r.network, err))
		return fired, err
	}
	if fired > 0 {
		r.logger.Info("Trigger fired", "items", fired)
	}
	return fired, nil
}

// Start polls immediately and then every interval until ctx is done or
// Stop is called. Calling Start on a running Runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

func (r *Runner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Trigger started", "interval", r.interval)
	for {
		_, _ = r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("Context done, stopping trigger")
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop exits. It is nil before Start.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
