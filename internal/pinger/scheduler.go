package pinger

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// TargetSource provides the targets of a tick.
type TargetSource interface {
	Targets() []PingTarget
}

// TargetProber probes one target.
type TargetProber interface {
	Probe(ctx context.Context, target PingTarget) PingResult
}

// Scheduler runs probe ticks on a cron schedule.
type Scheduler struct {
	source     TargetSource
	status     *Status
	prober     TargetProber
	pool       *WorkerPool
	limiter    *rate.Limiter
	cron       *cron.Cron
	cronLogger logr.Logger
	runOnStart bool
	logger     observability.Logger
	metrics    *Metrics

	mu       sync.Mutex
	schedule cron.Schedule
	job      cron.Job
	entry    cron.EntryID
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger observability.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithCronLogger sets the logger of the cron runner.
func WithCronLogger(logger logr.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.cronLogger = logger
	}
}

// NewScheduler creates a scheduler probing the targets of source on
// schedule. The worker pool is sized from cfg and does not change later.
func NewScheduler(
	cfg config.SchedulerConfig,
	schedule cron.Schedule,
	source TargetSource,
	status *Status,
	prober TargetProber,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		source:     source,
		status:     status,
		prober:     prober,
		pool:       NewWorkerPool(cfg.Workers, cfg.QueueDepth),
		limiter:    rate.NewLimiter(dispatchLimit(cfg.DispatchRate), 1),
		cronLogger: logr.Discard(),
		runOnStart: cfg.RunOnStart == nil || *cfg.RunOnStart,
		logger:     observability.NopLogger(),
		metrics:    GetMetrics(),
		schedule:   schedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithLogger(s.cronLogger),
	)
	return s
}

func dispatchLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// Run starts the cron runner and blocks until ctx is done. Running ticks
// are awaited and the worker pool is stopped before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.job = cron.NewChain(cron.SkipIfStillRunning(s.cronLogger)).
		Then(cron.FuncJob(func() { s.RunOnce(ctx) }))
	s.entry = s.cron.Schedule(s.schedule, s.job)
	job := s.job
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("probe scheduler started",
		observability.Int("workers", s.pool.Workers()),
		observability.Time("next", s.cron.Entry(s.entry).Next),
	)

	// The first tick runs through the job chain, so a cron tick firing
	// meanwhile is skipped instead of resetting the status mid-tick.
	if s.runOnStart {
		job.Run()
	}

	<-ctx.Done()
	s.logger.Info("stopping probe scheduler")
	<-s.cron.Stop().Done()
	s.pool.Stop()
	return nil
}

// SetSchedule replaces the schedule. It takes effect from the next tick.
func (s *Scheduler) SetSchedule(schedule cron.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = schedule
	if s.job == nil {
		return
	}
	s.cron.Remove(s.entry)
	s.entry = s.cron.Schedule(schedule, s.job)
	s.logger.Info("probe schedule updated", observability.Time("next", s.cron.Entry(s.entry).Next))
}

// SetDispatchRate changes probe submission pacing. Zero disables pacing.
func (s *Scheduler) SetDispatchRate(perSecond float64) {
	s.limiter.SetLimit(dispatchLimit(perSecond))
}

// RunOnce executes one tick: it clears the status, dispatches a probe per
// current target and waits for the dispatched probes. Targets the pool
// rejects are recorded as failed.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ping.Tick", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	targets := s.source.Targets()
	s.status.Reset()
	s.metrics.ticks.Inc()
	span.SetAttributes(attribute.Int("ping.targets", len(targets)))

	var wg sync.WaitGroup
	dispatched, rejected := 0, 0
	for _, target := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("tick interrupted", observability.Error(err))
			break
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			result := s.prober.Probe(ctx, target)
			s.status.Record(result)
			s.metrics.RecordResult(result)
		})
		if err != nil {
			wg.Done()
			rejected++
			s.status.Record(PingResult{Host: target.Host, ObservedAt: time.Now(), Err: err})
			s.metrics.RecordRejection(target.Host)
			s.logger.Warn("probe rejected",
				observability.String("host", target.Host),
				observability.Error(err),
			)
			continue
		}
		dispatched++
	}
	wg.Wait()

	healthy := s.status.AllHealthy()
	if healthy {
		s.metrics.allHealthy.Set(1)
	} else {
		s.metrics.allHealthy.Set(0)
	}
	span.SetAttributes(
		attribute.Int("ping.dispatched", dispatched),
		attribute.Int("ping.rejected", rejected),
		attribute.Bool("ping.all_healthy", healthy),
	)
	s.logger.Info("probe tick completed",
		observability.Int("targets", len(targets)),
		observability.Int("dispatched", dispatched),
		observability.Int("rejected", rejected),
		observability.Bool("allHealthy", healthy),
		observability.Duration("duration", time.Since(start)),
	)
}
