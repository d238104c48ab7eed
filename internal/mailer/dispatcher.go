package mailer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/pkg/jobs"
)

const jobTypeFinalizeNotification = "finalize_notification"

// DispatcherConfig tunes the notification worker pool.
type DispatcherConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Dispatcher feeds finalize notifications through a background queue. It
// satisfies the fire-and-forget trigger the pulse service calls after a
// successful finalize: enqueue failures are logged, never surfaced.
type Dispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewDispatcher builds the queue around the mailer.
func NewDispatcher(m *Mailer, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		pulseID, ok := job.Payload.(string)
		if !ok {
			logger.Error("notification job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return m.Send(ctx, pulseID)
	}
	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &Dispatcher{queue: queue, logger: logger}
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Trigger enqueues a notification for the pulse.
func (d *Dispatcher) Trigger(pulseID string) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeFinalizeNotification,
		Payload: pulseID,
	}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue notification", zap.String("pulse_id", pulseID), zap.Error(err))
	}
}
