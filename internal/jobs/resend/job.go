package resend

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transport/soap"
)

var tracer = otel.Tracer("github.com/Ometra-Hela/Alize/internal/jobs/resend")

const (
	jobName = "resend"

	DefaultBatchSize  = 100
	DefaultMaxRetries = 5
)

type Store interface {
	PendingRetry(ctx context.Context, maxRetries, limit int) ([]*model.ProtocolMessage, error)
	MarkSent(ctx context.Context, id int64, ackText string, at time.Time) error
	IncrementRetry(ctx context.Context, id int64, ackText string, at time.Time) error
	GetByPortID(ctx context.Context, portID string) (*model.Portability, error)
	TryLockJob(ctx context.Context, name string) (bool, error)
	UnlockJob(ctx context.Context, name string)
}

// Deliverer replays a stored exchange without recording a new one.
type Deliverer interface {
	Deliver(ctx context.Context, msg soap.Message) (string, error)
}

type Config struct {
	BatchSize  int
	MaxRetries int
}

type Job struct {
	cfg       Config
	store     Store
	transport Deliverer
	now       func() time.Time
	logger    *zap.Logger
	running   sync.Mutex
}

type Option func(*Job)

func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

func NewJob(cfg Config, store Store, transport Deliverer, logger *zap.Logger, opts ...Option) *Job {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	j := &Job{cfg: cfg, store: store, transport: transport, now: time.Now, logger: logger.Named("resend-job")}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Run re-sends outbound messages whose last attempt failed and that still have retries left.
func (j *Job) Run(ctx context.Context) error {
	if !j.running.TryLock() {
		return nil
	}
	defer j.running.Unlock()

	ctx, span := tracer.Start(ctx, "Resend.Run")
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

	pending, err := j.store.PendingRetry(ctx, j.cfg.MaxRetries, j.cfg.BatchSize)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("pending", len(pending)))

	for _, msg := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := j.resend(ctx, msg); err != nil {
			return err
		}
	}

	return nil
}

// resend returns an error only when the store fails; delivery failures count as a retry.
func (j *Job) resend(ctx context.Context, msg *model.ProtocolMessage) error {
	log := j.logger.With(
		zap.String("port_id", msg.PortID),
		zap.Int("message_type", msg.TypeCode.Code()),
		zap.Int64("message_id", msg.ID))

	p, err := j.store.GetByPortID(ctx, msg.PortID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		log.Warn("resend.case.missing")
		return nil
	case err != nil:
		return err
	case p.State.IsTerminal():
		log.Debug("case is terminal, not resending", zap.String("state", p.State.String()))
		return nil
	}

	text, sendErr := j.transport.Deliver(ctx, soap.Message{PortID: msg.PortID, Type: msg.TypeCode, XML: msg.RawXML})
	now := j.now()

	if sendErr != nil {
		log.Warn("resend.fail", zap.Int("retry_count", msg.RetryCount+1), zap.Error(sendErr))
		return j.store.IncrementRetry(ctx, msg.ID, ackText(sendErr), now)
	}

	log.Info("message resent")

	return j.store.MarkSent(ctx, msg.ID, text, now)
}

func ackText(err error) string {
	var mErr *model.Error
	if errors.As(err, &mErr) && mErr.Description != "" {
		return mErr.Description
	}

	return err.Error()
}
