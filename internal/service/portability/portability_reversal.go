package portability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
	"github.com/Ometra-Hela/Alize/internal/transform"
	"github.com/Ometra-Hela/Alize/internal/validators"
)

const reversalRequestedReason = "Reversal requested"

// RequestReversal sends the reversal request (4001) for a ported or scheduled case and
// moves it to REVERSAL_REQUESTED.
func (s *Service) RequestReversal(ctx context.Context, portID string, req *model.ReversalRequest) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.RequestReversal")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID))

	log := s.getNamedLogger(ctx).With(zap.String("port_id", portID))

	if err := validators.NewOptionalRequestValidator(req).Validate(ctx); err != nil {
		log.Error("validateReversalRequest.fail", zap.Error(err))
		return nil, err
	}

	p, err := s.cases.GetByPortID(ctx, portID)
	if err != nil {
		return nil, err
	}

	if !statemachine.IsAllowed(p.State, model.StateReversalRequested) {
		return nil, model.NewTransitionError(p.State, model.StateReversalRequested)
	}

	numbers, err := s.activeNumbers(ctx, p)
	if err != nil {
		return nil, err
	}

	msg := codec.ReversalRequest{
		Timestamp:      s.now(),
		PortType:       p.PortType,
		SubscriberType: p.SubscriberType,
		RecoveryFlag:   p.RecoveryFlag,
		PortID:         p.PortID,
		DIDA:           p.DIDA,
		DCR:            p.DCR,
		RIDA:           p.RIDA,
		RCR:            p.RCR,
		Numbers:        transform.CompactNumbers(numbers),
	}

	if req != nil {
		msg.Comments = req.Comments
		msg.Attachments = req.Attachments
	}

	xml, err := msg.Build()
	if err != nil {
		log.Error("buildReversalRequest.fail", zap.Error(err))
		return nil, err
	}

	if err := s.send(ctx, portID, model.MessageTypeReversalRequest, xml); err != nil {
		log.Error("sendReversalRequest.fail", zap.Error(err))
		return nil, err
	}

	updated, err := s.engine.Transition(ctx, portID, model.StateReversalRequested, reversalRequestedReason)
	if err != nil {
		log.Error("transitionReversalRequested.fail", zap.Error(err))
		return nil, err
	}

	log.Info("reversal requested")

	return updated, nil
}
