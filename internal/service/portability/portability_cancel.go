package portability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
	"github.com/Ometra-Hela/Alize/internal/validators"
)

// Cancel sends the cancellation request (3001). The state stays as it is until the
// clearinghouse accepts with 3002.
func (s *Service) Cancel(ctx context.Context, portID string, req *model.CancelRequest) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.Cancel")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID))

	log := s.getNamedLogger(ctx).With(zap.String("port_id", portID))

	if err := s.requireIDA(); err != nil {
		return nil, err
	}

	if err := validators.NewOptionalRequestValidator(req).Validate(ctx); err != nil {
		log.Error("validateCancelRequest.fail", zap.Error(err))
		return nil, err
	}

	p, err := s.cases.GetByPortID(ctx, portID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if !p.State.CanCancel() || p.DeadlinePassed(model.TimerT4, now) {
		return nil, model.NewTransitionError(p.State, model.StateCancelled)
	}

	numbers, err := s.activeNumbers(ctx, p)
	if err != nil {
		return nil, err
	}

	var comments string
	if req != nil {
		comments = req.Comments
	}

	xml, err := codec.CancellationRequest{
		Envelope:       codec.Envelope{Sender: s.ida, Timestamp: now},
		PortType:       p.PortType,
		SubscriberType: p.SubscriberType,
		RecoveryFlag:   p.RecoveryFlag,
		PortID:         p.PortID,
		DIDA:           p.DIDA,
		DCR:            p.DCR,
		RIDA:           p.RIDA,
		RCR:            p.RCR,
		Numbers:        transform.CompactNumbers(numbers),
		Comments:       comments,
	}.Build()
	if err != nil {
		log.Error("buildCancellationRequest.fail", zap.Error(err))
		return nil, err
	}

	if err := s.send(ctx, portID, model.MessageTypeCancellationRequest, xml); err != nil {
		log.Error("sendCancellationRequest.fail", zap.Error(err))
		return nil, err
	}

	log.Info("cancellation request sent", zap.String("state", p.State.String()))

	return p, nil
}
