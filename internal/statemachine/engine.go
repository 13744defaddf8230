package statemachine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
)

var tracer = otel.Tracer("github.com/Ometra-Hela/Alize/internal/statemachine")

// ErrPreconditionFailed is returned when a transition guard no longer holds for the
// locked case. Nothing is written.
var ErrPreconditionFailed = errors.New("statemachine: precondition no longer holds")

type Repository interface {
	UpdateWithLock(ctx context.Context, portID string, fn func(*model.Portability) error) (*model.Portability, error)
}

type Publisher interface {
	PublishStateChanged(ctx context.Context, change model.StateChange) error
}

// Guard inspects the locked case right before the transition is applied.
type Guard func(p *model.Portability, now time.Time) bool

type transitionOptions struct {
	guards  []Guard
	updates []func(*model.Portability)
}

type TransitionOption func(*transitionOptions)

func WithGuard(g Guard) TransitionOption {
	return func(o *transitionOptions) {
		o.guards = append(o.guards, g)
	}
}

// WithUpdate mutates extra case fields in the same write as the state change. Updates
// run before timers are armed, so an execution date set here feeds T4.
func WithUpdate(fn func(*model.Portability)) TransitionOption {
	return func(o *transitionOptions) {
		o.updates = append(o.updates, fn)
	}
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

type Engine struct {
	repo      Repository
	publisher Publisher
	timers    TimerConfig
	now       func() time.Time
	logger    *zap.Logger
}

func NewEngine(repo Repository, publisher Publisher, timers TimerConfig, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		publisher: publisher,
		timers:    timers.withDefaults(),
		now:       time.Now,
		logger:    logger.Named("state-engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Transition moves the case to the target state under the repository's per-case lock.
// The legality check runs against the locked row, so concurrent callers cannot both
// succeed from the same source state.
func (e *Engine) Transition(ctx context.Context, portID string, to model.State, reason string, opts ...TransitionOption) (*model.Portability, error) {
	ctx, span := tracer.Start(ctx, "Engine.Transition")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID), attribute.String("state.to", string(to)))

	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	var change model.StateChange

	updated, err := e.repo.UpdateWithLock(ctx, portID, func(p *model.Portability) error {
		now := e.now()

		for _, g := range o.guards {
			if !g(p, now) {
				return ErrPreconditionFailed
			}
		}

		if !IsAllowed(p.State, to) {
			e.logger.Warn("transition rejected",
				zap.String("port_id", portID),
				zap.String("state.from", string(p.State)),
				zap.String("state.to", string(to)),
				zap.Any("state.allowed", Allowed(p.State)))

			return model.NewTransitionError(p.State, to)
		}

		change = model.StateChange{PortID: portID, Previous: p.State, Current: to, Reason: reason, At: now}

		for _, update := range o.updates {
			update(p)
		}

		p.State = to
		ApplyTimers(p, to, now, e.timers)

		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordStateTransition(string(change.Previous), string(change.Current))

	e.logger.Info("state changed",
		zap.String("port_id", portID),
		zap.String("state.from", string(change.Previous)),
		zap.String("state.to", string(change.Current)),
		zap.String("reason", reason))

	if e.publisher != nil {
		if err := e.publisher.PublishStateChanged(ctx, change); err != nil {
			e.logger.Error("state.publish.fail", zap.String("port_id", portID), zap.Error(err))
		}
	}

	return updated, nil
}

// TransitionIf applies the transition only while guard holds for the locked case.
func (e *Engine) TransitionIf(ctx context.Context, portID string, to model.State, reason string, guard Guard) (*model.Portability, error) {
	return e.Transition(ctx, portID, to, reason, WithGuard(guard))
}
