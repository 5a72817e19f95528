package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/pgstay/internal/clock"
	obsmetrics "github.com/smallbiznis/pgstay/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobExpireSubscriptions = "expire_subscriptions"

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log             *zap.Logger
	SubscriptionSvc subscriptiondomain.Service
	Clock           clock.Clock
	Metrics         *obsmetrics.SchedulerMetrics `optional:"true"`
	Config          Config                       `optional:"true"`
}

// Scheduler runs the expiry sweep. Each account is expired through the
// subscription service, one at a time under its account lock.
type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	metrics         *obsmetrics.SchedulerMetrics
	subscriptionSvc subscriptiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.SubscriptionSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		metrics:         p.Metrics,
		subscriptionSvc: p.SubscriptionSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name, batchSize)
	s.logJobStart(ctx, run)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout; the next tick picks up the remainder.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobExpireSubscriptions, s.cfg.BatchSize, s.cfg.JobTimeout, s.ExpireSubscriptionsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := time.Since(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpireSubscriptionsJob expires due trials and paid periods in batches until a
// batch comes back short.
func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	var jobErr error

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		expired, err := s.subscriptionSvc.ExpireDue(ctx, s.cfg.BatchSize)
		run.AddProcessed(expired)
		s.metrics.AddExpired(JobExpireSubscriptions, expired)
		s.metrics.AddBatchProcessed(JobExpireSubscriptions, obsmetrics.ResourceSubscriptions, expired)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.expire.failed", err)
			jobErr = errors.Join(jobErr, err)
			break
		}
		if expired < s.cfg.BatchSize {
			break
		}
	}

	return jobErr
}
