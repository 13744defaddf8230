package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
	"github.com/Ometra-Hela/Alize/internal/transform"
)

const handlersLogName = "inbound-handlers"

type Transitioner interface {
	Transition(ctx context.Context, portID string, to model.State, reason string, opts ...statemachine.TransitionOption) (*model.Portability, error)
}

type CaseStore interface {
	GetByPortID(ctx context.Context, portID string) (*model.Portability, error)
	MarkNumbersRejected(ctx context.Context, portabilityID int64, rejected []model.RejectedNumber) (int, error)
}

type ScheduleNotifier interface {
	PublishReadyToSchedule(ctx context.Context, portID string) error
	PublishScheduled(ctx context.Context, portID string, execDate time.Time) error
}

// Handlers applies inbound clearinghouse messages to local cases.
type Handlers struct {
	engine   Transitioner
	cases    CaseStore
	notifier ScheduleNotifier
	loc      *time.Location
	logger   *zap.Logger
}

func NewHandlers(engine Transitioner, cases CaseStore, notifier ScheduleNotifier, loc *time.Location, logger *zap.Logger) *Handlers {
	if loc == nil {
		loc = time.UTC
	}

	return &Handlers{
		engine:   engine,
		cases:    cases,
		notifier: notifier,
		loc:      loc,
		logger:   logger.Named(handlersLogName),
	}
}

// Register binds every handled message type on d.
func (h *Handlers) Register(d *Dispatcher) {
	d.Register(model.MessageTypePortRequestAck, h.HandlePortRequestAck)
	d.Register(model.MessageTypePortResponse, h.HandlePortResponse)
	d.Register(model.MessageTypeReadyToSchedule, h.HandleReadyToSchedule)
	d.Register(model.MessageTypeSchedulePortNotification, h.HandleScheduleNotification)
	d.Register(model.MessageTypeCancellationAcceptance, h.HandleCancellationAck)
	d.Register(model.MessageTypeReversalAcceptance, h.HandleReversalAccept)
	d.Register(model.MessageTypeReversalRejection, h.HandleReversalReject)
}

func (h *Handlers) HandlePortRequestAck(ctx context.Context, msg *codec.Parsed) error {
	ack, err := bodyOf[*codec.PortRequestAck](msg)
	if err != nil {
		return err
	}

	if ack.AckStatus == model.AckStatusSuccess {
		return h.transition(ctx, ack.PortID, model.StatePortRequested, "ABD acknowledged port request")
	}

	return h.transition(ctx, ack.PortID, model.StateRejected,
		fmt.Sprintf("ABD rejected port request: %s - %s", ack.ErrorCode, ack.ErrorMessage))
}

func (h *Handlers) HandlePortResponse(ctx context.Context, msg *codec.Parsed) error {
	resp, err := bodyOf[*codec.PortResponse](msg)
	if err != nil {
		return err
	}

	switch resp.Status {
	case codec.ResponseAccept:
		h.logger.Info("donor accepted port request, awaiting ready to schedule", zap.String("port_id", resp.PortID))

		return nil
	case codec.ResponseReject:
		return h.transition(ctx, resp.PortID, model.StateRejected,
			fmt.Sprintf("Donor rejected: %s - %s", resp.ReasonCode, resp.ReasonText))
	default:
		return h.markPartialRejection(ctx, resp)
	}
}

func (h *Handlers) markPartialRejection(ctx context.Context, resp *codec.PortResponse) error {
	p, err := h.cases.GetByPortID(ctx, resp.PortID)
	if err != nil {
		return h.missingCase(resp.PortID, err)
	}

	marked, err := h.cases.MarkNumbersRejected(ctx, p.ID, resp.RejectedNumbers)
	if err != nil {
		return fmt.Errorf("mark rejected numbers: %w", err)
	}

	h.logger.Info("donor partially rejected port request",
		zap.String("port_id", resp.PortID),
		zap.Int("rejected_numbers", len(resp.RejectedNumbers)),
		zap.Int("marked_numbers", marked))

	return nil
}

func (h *Handlers) HandleReadyToSchedule(ctx context.Context, msg *codec.Parsed) error {
	body, err := bodyOf[*codec.ReadyToSchedule](msg)
	if err != nil {
		return err
	}

	applied, err := h.apply(ctx, body.PortID, model.StateReadyToBeScheduled, "Ready to be scheduled")
	if err != nil || !applied {
		return err
	}

	if err := h.notifier.PublishReadyToSchedule(ctx, body.PortID); err != nil {
		h.logger.Error("notify.ready.fail", zap.String("port_id", body.PortID), zap.Error(err))
	}

	return nil
}

func (h *Handlers) HandleScheduleNotification(ctx context.Context, msg *codec.Parsed) error {
	body, err := bodyOf[*codec.ScheduleNotification](msg)
	if err != nil {
		return err
	}

	execDate, err := body.ExecutionDate(h.loc)
	if err != nil {
		return err
	}

	applied, err := h.apply(ctx, body.PortID, model.StatePortScheduled, "Port scheduled",
		statemachine.WithUpdate(func(p *model.Portability) {
			p.PortExecDate = &execDate
		}))
	if err != nil || !applied {
		return err
	}

	if err := h.notifier.PublishScheduled(ctx, body.PortID, execDate); err != nil {
		h.logger.Error("notify.scheduled.fail", zap.String("port_id", body.PortID), zap.Error(err))
	}

	return nil
}

func (h *Handlers) HandleCancellationAck(ctx context.Context, msg *codec.Parsed) error {
	body, err := bodyOf[*codec.CancellationAck](msg)
	if err != nil {
		return err
	}

	return h.transition(ctx, body.PortID, model.StateCancelled, "ABD accepted cancellation")
}

// HandleReversalAccept moves the case to REVERSAL_SCHEDULED. The reversal execution
// date stays in the message record; PortExecDate keeps the original port date.
func (h *Handlers) HandleReversalAccept(ctx context.Context, msg *codec.Parsed) error {
	body, err := bodyOf[*codec.ReversalAccept](msg)
	if err != nil {
		return err
	}

	applied, err := h.apply(ctx, body.PortID, model.StateReversalScheduled, "Reversal accepted")
	if err != nil || !applied {
		return err
	}

	if body.RevExecDate == "" {
		return nil
	}

	revDate, err := transform.ParseProtocolTime(body.RevExecDate, h.loc)
	if err != nil {
		h.logger.Warn("invalid reversal execution date",
			zap.String("port_id", body.PortID),
			zap.String("rev_exec_date", body.RevExecDate))

		return nil
	}

	if err := h.notifier.PublishScheduled(ctx, body.PortID, revDate); err != nil {
		h.logger.Error("notify.scheduled.fail", zap.String("port_id", body.PortID), zap.Error(err))
	}

	return nil
}

func (h *Handlers) HandleReversalReject(ctx context.Context, msg *codec.Parsed) error {
	body, err := bodyOf[*codec.ReversalReject](msg)
	if err != nil {
		return err
	}

	return h.transition(ctx, body.PortID, model.StateRejected,
		fmt.Sprintf("Reversal rejected: %s - %s", body.RejectCode, body.RejectReason))
}

func (h *Handlers) transition(ctx context.Context, portID string, to model.State, reason string) error {
	_, err := h.apply(ctx, portID, to, reason)

	return err
}

// apply transitions the case unless it already sits in the target state, which makes
// redelivered messages harmless. It reports whether a transition was committed.
func (h *Handlers) apply(ctx context.Context, portID string, to model.State, reason string, opts ...statemachine.TransitionOption) (bool, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "Handlers.apply")
	defer span.End()

	opts = append(opts, statemachine.WithGuard(func(p *model.Portability, _ time.Time) bool {
		return p.State != to
	}))

	_, err := h.engine.Transition(ctx, portID, to, reason, opts...)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, statemachine.ErrPreconditionFailed):
		h.logger.Info("case already in target state, ignoring duplicate",
			zap.String("port_id", portID),
			zap.String("state", string(to)))

		return false, nil
	case errors.Is(err, model.ErrNotFound):
		return false, h.missingCase(portID, err)
	default:
		return false, err
	}
}

// missingCase logs messages for cases this node does not own. They are acknowledged.
func (h *Handlers) missingCase(portID string, err error) error {
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	h.logger.Warn("inbound message for unknown case", zap.String("port_id", portID))

	return nil
}

func bodyOf[T any](msg *codec.Parsed) (T, error) {
	body, ok := msg.Body.(T)
	if !ok {
		var zero T

		return zero, model.NewValidationError("unexpected body %T for message %d", msg.Body, msg.Type.Code())
	}

	return body, nil
}
