// Package breaker implements a circuit breaker whose state lives in a shared store,
// so every replica talking to the same clearinghouse endpoint sees the same circuit.
package breaker

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
)

const (
	keyPrefix = "alize_cb_"

	DefaultFailureThreshold  = 5
	DefaultOpenDuration      = 60 * time.Second
	DefaultHalfOpenSuccesses = 1
)

var errDenied = errors.New("circuit denied")

type Config struct {
	FailureThreshold  int
	OpenDuration      time.Duration
	HalfOpenSuccesses int
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}

	if c.OpenDuration <= 0 {
		c.OpenDuration = DefaultOpenDuration
	}

	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}

	return c
}

// State is the persisted circuit. The zero value is a closed circuit.
type State struct {
	Open              bool      `json:"open"`
	Failures          int       `json:"failures"`
	OpenedAt          time.Time `json:"opened_at,omitempty"`
	HalfOpen          bool      `json:"half_open"`
	HalfOpenSuccesses int       `json:"half_open_successes"`
	ProbeInFlight     bool      `json:"probe_in_flight"`
	ProbeStartedAt    time.Time `json:"probe_started_at,omitempty"`
}

func (s State) Closed() bool {
	return !s.Open && !s.HalfOpen
}

// Store applies read-modify-write updates atomically per key. When fn returns an
// error the update is discarded and the error is returned unchanged.
type Store interface {
	Get(ctx context.Context, key string) (State, error)
	Update(ctx context.Context, key string, fn func(*State) error) (State, error)
}

type Option func(*Breaker)

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

type Breaker struct {
	name   string
	cfg    Config
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func New(name string, store Store, cfg Config, logger *zap.Logger, opts ...Option) *Breaker {
	b := &Breaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		store:  store,
		now:    time.Now,
		logger: logger.Named("circuit-breaker").With(zap.String("breaker", name)),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NameForEndpoint derives a stable breaker name from the endpoint URL.
func NameForEndpoint(endpoint string) string {
	sum := md5.Sum([]byte(endpoint)) //nolint:gosec

	return "soap_" + hex.EncodeToString(sum[:])
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) key() string {
	return keyPrefix + b.name
}

// Allow reports whether a call may proceed. An open circuit whose open period has
// elapsed admits exactly one probe. Store failures are logged and the call is allowed.
func (b *Breaker) Allow(ctx context.Context) error {
	now := b.now()

	_, err := b.store.Update(ctx, b.key(), func(s *State) error {
		switch {
		case s.Closed():
			return nil
		case s.HalfOpen:
			if s.ProbeInFlight && now.Before(s.ProbeStartedAt.Add(b.cfg.OpenDuration)) {
				return errDenied
			}
		case now.Before(s.OpenedAt.Add(b.cfg.OpenDuration)):
			return errDenied
		default:
			s.Open = false
			s.HalfOpen = true
			s.HalfOpenSuccesses = 0
			b.logger.Info("circuit half-open")
		}

		s.ProbeInFlight = true
		s.ProbeStartedAt = now

		return nil
	})

	if errors.Is(err, errDenied) {
		observability.RecordBreakerRejection(b.name)
		b.logger.Warn("circuit open, call rejected")

		return model.NewCircuitOpenError(b.name)
	}

	if err != nil {
		b.logger.Error("breaker.allow.fail", zap.Error(err))
	}

	return nil
}

func (b *Breaker) RecordSuccess(ctx context.Context) {
	_, err := b.store.Update(ctx, b.key(), func(s *State) error {
		if !s.HalfOpen {
			s.Failures = 0
			return nil
		}

		s.HalfOpenSuccesses++
		s.ProbeInFlight = false

		if s.HalfOpenSuccesses >= b.cfg.HalfOpenSuccesses {
			*s = State{}
			b.logger.Info("circuit closed")
		}

		return nil
	})
	if err != nil {
		b.logger.Error("breaker.record_success.fail", zap.Error(err))
	}
}

func (b *Breaker) RecordFailure(ctx context.Context) {
	now := b.now()

	_, err := b.store.Update(ctx, b.key(), func(s *State) error {
		switch {
		case s.HalfOpen:
			*s = State{Open: true, Failures: s.Failures, OpenedAt: now}
			b.logger.Warn("circuit reopened after failed probe")
		case s.Open:
			// a call admitted before the circuit opened
		default:
			s.Failures++
			if s.Failures >= b.cfg.FailureThreshold {
				s.Open = true
				s.OpenedAt = now
				b.logger.Warn("circuit opened", zap.Int("failures", s.Failures))
			}
		}

		return nil
	})
	if err != nil {
		b.logger.Error("breaker.record_failure.fail", zap.Error(err))
	}
}

func (b *Breaker) State(ctx context.Context) (State, error) {
	return b.store.Get(ctx, b.key())
}
