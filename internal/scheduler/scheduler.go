package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	"github.com/smallbiznis/kado/internal/config"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	notificationdomain "github.com/smallbiznis/kado/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	"github.com/smallbiznis/kado/internal/ratelimit"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var leaderLockKey = ratelimit.LockKey("scheduler", "leader")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder

	EventRepo        eventdomain.Repository
	MemberRepo       memberdomain.Repository
	TeamRepo         teamdomain.Repository
	ContributionRepo contributiondomain.Repository
	Dispatcher       notificationdomain.Dispatcher

	Locker *ratelimit.Locker `optional:"true"`
	Config Config            `optional:"true"`
}

type Scheduler struct {
	db     *gorm.DB
	log    *zap.Logger
	cfg    Config
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder

	eventRepo        eventdomain.Repository
	memberRepo       memberdomain.Repository
	teamRepo         teamdomain.Repository
	contributionRepo contributiondomain.Repository
	dispatcher       notificationdomain.Dispatcher

	locker *ratelimit.Locker

	lastTick atomic.Value // time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Policy == nil ||
		p.EventRepo == nil || p.MemberRepo == nil || p.TeamRepo == nil || p.ContributionRepo == nil || p.Dispatcher == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		db:     p.DB,
		log:    p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:    cfg,
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,

		eventRepo:        p.EventRepo,
		memberRepo:       p.MemberRepo,
		teamRepo:         p.TeamRepo,
		contributionRepo: p.ContributionRepo,
		dispatcher:       p.Dispatcher,

		locker: p.Locker,
	}, nil
}

// LastTick reports when RunOnce last completed. The health endpoint uses it
// as the liveness signal for the loop.
func (s *Scheduler) LastTick() time.Time {
	if v, ok := s.lastTick.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

// RunInterval exposes the configured tick interval for liveness checks.
func (s *Scheduler) RunInterval() time.Duration {
	return s.cfg.RunInterval
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Deadline is a soft timeout: the remaining work is picked up next tick.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes a single tick: create due events, advance lifecycles,
// send reminders. Every job is idempotent, so a re-run (crash recovery,
// manual trigger, concurrent replica) is harmless.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{jobCreateEvents, s.isJobEnabled(jobCreateEvents), func(ctx context.Context) error {
			return s.runJob(ctx, jobCreateEvents, s.cfg.BatchSize, s.cfg.JobTimeout, s.CreateEventsJob)
		}},
		{jobTransitionEvents, s.isJobEnabled(jobTransitionEvents), func(ctx context.Context) error {
			return s.runJob(ctx, jobTransitionEvents, s.cfg.BatchSize, s.cfg.JobTimeout, s.TransitionEventsJob)
		}},
		{jobSendReminders, s.isJobEnabled(jobSendReminders), func(ctx context.Context) error {
			return s.runJob(ctx, jobSendReminders, s.cfg.BatchSize, s.cfg.JobTimeout, s.SendRemindersJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	s.lastTick.Store(s.clock.Now())
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		s.runTick(ctx)
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runTick runs one tick under the leader lock when redis is configured, so
// only one replica drives the lifecycle at a time.
func (s *Scheduler) runTick(ctx context.Context) {
	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, leaderLockKey, s.cfg.LeaderLockTTL)
		if err != nil {
			s.log.Warn("leader lock unavailable, running tick anyway", zap.Error(err))
		} else if !acquired {
			s.log.Debug("another replica holds the leader lock, skipping tick")
			return
		} else {
			defer func() {
				if err := s.locker.Release(ctx, leaderLockKey, token); err != nil {
					s.log.Warn("failed to release leader lock", zap.Error(err))
				}
			}()
		}
	}

	if err := s.RunOnce(ctx); err != nil {
		s.log.Warn("scheduler run failed", zap.Error(err))
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs means all jobs run (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
