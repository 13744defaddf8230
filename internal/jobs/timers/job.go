package timers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
)

var tracer = otel.Tracer("github.com/Ometra-Hela/Alize/internal/jobs/timers")

const (
	jobName = "timer-sweep"

	DefaultBatchSize = 500
)

type Store interface {
	FindExpired(ctx context.Context, timer model.Timer, now time.Time, limit int) ([]*model.Portability, error)
	TryLockJob(ctx context.Context, name string) (bool, error)
	UnlockJob(ctx context.Context, name string)
}

type Transitioner interface {
	TransitionIf(ctx context.Context, portID string, to model.State, reason string, guard statemachine.Guard) (*model.Portability, error)
}

// expiry is what happens to a case when one of its deadlines passes.
type expiry struct {
	timer  model.Timer
	to     model.State
	reason string
}

var expiries = []expiry{
	{timer: model.TimerT1, to: model.StateTerminated, reason: "T1 timer expired"},
	{timer: model.TimerT3, to: model.StateTerminated, reason: "T3 timer expired"},
	{timer: model.TimerT4, to: model.StateCancelled, reason: "T4 timer expired"},
}

type Config struct {
	BatchSize int
}

type Job struct {
	cfg     Config
	store   Store
	engine  Transitioner
	now     func() time.Time
	logger  *zap.Logger
	running sync.Mutex
}

type Option func(*Job)

func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

func NewJob(cfg Config, store Store, engine Transitioner, logger *zap.Logger, opts ...Option) *Job {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	j := &Job{cfg: cfg, store: store, engine: engine, now: time.Now, logger: logger.Named(jobName)}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Run performs one sweep over T1, T3 and T4. A tick is skipped when another sweep is
// still running in this process or holds the cluster-wide job lock.
func (j *Job) Run(ctx context.Context) error {
	if !j.running.TryLock() {
		j.logger.Debug("sweep already in flight")
		return nil
	}
	defer j.running.Unlock()

	ctx, span := tracer.Start(ctx, "TimerSweep.Run")
	defer span.End()

	locked, err := j.store.TryLockJob(ctx, jobName)
	if err != nil {
		return err
	}

	if !locked {
		j.logger.Info("job already running")
		return nil
	}
	defer j.store.UnlockJob(context.Background(), jobName)

	now := j.now()

	for _, e := range expiries {
		if err := j.sweep(ctx, e, now); err != nil {
			return err
		}
	}

	return nil
}

func (j *Job) sweep(ctx context.Context, e expiry, now time.Time) error {
	ctx, span := tracer.Start(ctx, "TimerSweep.sweep")
	defer span.End()

	span.SetAttributes(attribute.String("timer", string(e.timer)))

	candidates, err := j.store.FindExpired(ctx, e.timer, now, j.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, p := range candidates {
		j.expire(ctx, p.PortID, e)
	}

	return nil
}

// expire handles one case. Failures are logged and the sweep moves on.
func (j *Job) expire(ctx context.Context, portID string, e expiry) {
	log := j.logger.With(zap.String("port_id", portID), zap.String("timer", string(e.timer)))

	_, err := j.engine.TransitionIf(ctx, portID, e.to, e.reason, stillExpired(e.timer))

	switch {
	case err == nil:
		observability.RecordTimerExpiration(string(e.timer), "expired")
		log.Info("timer expired", zap.String("state", e.to.String()))
	case errors.Is(err, statemachine.ErrPreconditionFailed):
		observability.RecordTimerExpiration(string(e.timer), "stale")
		log.Debug("deadline no longer governs the case")
	default:
		observability.RecordTimerExpiration(string(e.timer), "failure")
		log.Error("timer.expire.fail", zap.Error(err))
	}
}

// stillExpired re-checks the locked row: the deadline must have passed and the case
// must still sit in the state the deadline governs.
func stillExpired(timer model.Timer) statemachine.Guard {
	return func(p *model.Portability, now time.Time) bool {
		return p.State == timer.GoverningState() && p.DeadlinePassed(timer, now)
	}
}
