package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Retrier re-attempts queued session hand-offs.
type Retrier interface {
	RetryPending(ctx context.Context) int
	Pending() int
}

// PersistRetryJob periodically retries sessions the store rejected.
type PersistRetryJob struct {
	retrier  Retrier
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewPersistRetryJob(retrier Retrier, schedule string, timeout time.Duration, logger *zap.Logger) *PersistRetryJob {
	return &PersistRetryJob{
		retrier:  retrier,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins the scheduled retry job
func (j *PersistRetryJob) Start() error {
	if j.schedule == "" {
		j.logger.Info("persist retry job disabled, no schedule configured")
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule persist retry job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("persist retry job started", zap.String("schedule", j.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running retry to finish.
func (j *PersistRetryJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("persist retry job stopped")
}

// RunOnce performs a single retry pass and returns how many sessions were
// stored.
func (j *PersistRetryJob) RunOnce(ctx context.Context) int {
	pending := j.retrier.Pending()
	if pending == 0 {
		return 0
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	stored := j.retrier.RetryPending(ctx)
	j.logger.Info("persist retry pass finished",
		zap.Int("pending", pending),
		zap.Int("stored", stored),
		zap.Int("remaining", j.retrier.Pending()))
	return stored
}
