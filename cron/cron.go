package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/redis"
	"github.com/meinhoongagan/vetcare-app/services"
	"github.com/meinhoongagan/vetcare-app/tracer"
)

var ErrUnknownJob = errors.New("unknown job")

// Locker grants a cross-process lease; redis.Locker in production.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Job is a named periodic task. Run returns how many rows it touched.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (int, error)
}

// Scheduler runs jobs on their cron schedule, at most once at a time per job across all replicas.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	locker  Locker
	runs    services.JobRunRepository
	metrics *metrics.Collector
	log     *zap.Logger
	tracer  trace.Tracer
	lockTTL time.Duration
	now     func() time.Time
}

func NewScheduler(locker Locker, runs services.JobRunRepository, m *metrics.Collector, log *zap.Logger, lockTTL time.Duration) *Scheduler {
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    make(map[string]Job),
		locker:  locker,
		runs:    runs,
		metrics: m,
		log:     log,
		tracer:  tracer.Tracer("cron"),
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

func (s *Scheduler) Register(jobs ...Job) error {
	for _, j := range jobs {
		if _, dup := s.jobs[j.Name]; dup {
			return fmt.Errorf("job %q registered twice", j.Name)
		}
		name := j.Name
		if _, err := s.cron.AddFunc(j.Schedule, func() {
			if _, err := s.RunNow(context.Background(), name); err != nil {
				s.log.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("scheduling %s: %w", name, err)
		}
		s.jobs[name] = j
	}
	return nil
}

// Jobs lists registered jobs by name.
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("job scheduler stopped before running jobs finished")
	}
}

// RunNow executes one job immediately under its lock and records the outcome.
// A run skipped because another replica holds the lock is not an error.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*models.JobRun, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	ctx, span := s.tracer.Start(ctx, "job."+name, trace.WithAttributes(attribute.String("job.name", name)))
	defer span.End()

	run := &models.JobRun{Job: name, StartedAt: s.now()}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "job:"+name, s.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			run.Status = models.JobRunSkipped
			run.FinishedAt = s.now()
			s.record(ctx, run)
			s.log.Info("job skipped, lock held elsewhere", zap.String("job", name))
			return run, nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		defer release()
	}

	start := time.Now()
	processed, err := job.Run(ctx)
	s.metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	run.Processed = processed
	run.FinishedAt = s.now()
	if err != nil {
		run.Status = models.JobRunFailed
		run.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("job failed", zap.String("job", name), zap.Int("processed", processed), zap.Error(err))
	} else {
		run.Status = models.JobRunSucceeded
		s.log.Info("job finished", zap.String("job", name), zap.Int("processed", processed), zap.Duration("took", time.Since(start)))
	}
	span.SetAttributes(attribute.Int("job.processed", processed))
	if processed > 0 {
		s.metrics.JobProcessed.WithLabelValues(name).Add(float64(processed))
	}
	s.record(ctx, run)
	return run, err
}

func (s *Scheduler) record(ctx context.Context, run *models.JobRun) {
	s.metrics.JobRunsTotal.WithLabelValues(run.Job, string(run.Status)).Inc()
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.log.Warn("job run not recorded", zap.String("job", run.Job), zap.Error(err))
	}
}

// cronLogger routes robfig/cron's own messages into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
