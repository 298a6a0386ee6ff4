package notify

import (
	"context"
	"time"

	"dcpr.org/internal/obs"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
	defaultMaxAttempts  = 8
)

// Dispatcher polls the job store and hands due jobs to the notifier. A job
// is removed only after successful delivery; failures are rescheduled with
// exponential backoff until the attempt cap, then dropped as dead.
type Dispatcher struct {
	store       JobStore
	notifier    Notifier
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPollInterval sets how often the store is polled.
func WithPollInterval(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.interval = d
		}
	}
}

// WithMaxAttempts caps delivery retries per job.
func WithMaxAttempts(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.maxAttempts = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) DispatcherOption {
	return func(dp *Dispatcher) {
		if fn != nil {
			dp.now = fn
		}
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store JobStore, notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		notifier:    notifier,
		interval:    defaultPollInterval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls until the context ends.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes one batch of due jobs. Exposed for tests and for callers
// that drive dispatching manually.
func (d *Dispatcher) Tick(ctx context.Context) {
	now := d.now().UTC()
	jobs, err := d.store.Due(ctx, now, d.batchSize)
	if err != nil {
		obs.Logger().WithField("error", err.Error()).Warn("notify: poll failed")
		return
	}
	for _, job := range jobs {
		d.deliver(ctx, job)
	}
	if depth, err := d.store.Depth(ctx); err == nil {
		obs.SetNotificationQueueDepth(depth)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	err := d.notifier.Notify(ctx, job.ActivityID)
	if err == nil {
		if err := d.store.MarkDone(ctx, job.ID); err != nil {
			// The job stays queued and will be delivered again; receivers
			// must already cope with duplicates.
			obs.Logger().WithField("job_id", job.ID).Warn("notify: mark done failed")
			return
		}
		obs.RecordNotificationResult("delivered")
		return
	}

	attempts := job.Attempts + 1
	if attempts >= d.maxAttempts {
		obs.RecordNotificationResult("dead")
		obs.Logger().WithFields(map[string]any{
			"job_id":      job.ID,
			"activity_id": job.ActivityID,
			"attempts":    attempts,
			"error":       err.Error(),
		}).Error("notify: giving up on job")
		_ = d.store.MarkDone(ctx, job.ID)
		return
	}
	obs.RecordNotificationResult("retried")
	next := d.now().UTC().Add(backoff(attempts))
	if err := d.store.Reschedule(ctx, job.ID, attempts, next); err != nil {
		obs.Logger().WithField("job_id", job.ID).Warn("notify: reschedule failed")
	}
}
