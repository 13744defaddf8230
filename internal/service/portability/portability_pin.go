package portability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/converters"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
	"github.com/Ometra-Hela/Alize/internal/validators"
)

const pinRequestedReason = "PIN generation requested"

// RequestPIN opens a case for the contact number and asks the donor for a PIN (2001).
func (s *Service) RequestPIN(ctx context.Context, req *model.PinRequest) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.RequestPIN")
	defer span.End()

	log := s.getNamedLogger(ctx)

	if err := s.requireIDA(); err != nil {
		return nil, err
	}

	if err := validators.NewPinRequestValidator(req).Validate(ctx); err != nil {
		log.Error("validatePinRequest.fail", zap.Error(err))
		return nil, err
	}

	now := s.now()

	portID, folioID, err := s.newIdentifiers()
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("port_id", portID))

	subscriberType := req.SubscriberType
	if subscriberType == "" {
		subscriberType = model.SubscriberTypeIndividual
	}

	msisdn := converters.NormalizeMSISDN(req.ContactMSISDN)

	p := &model.Portability{
		PortID:         portID,
		FolioID:        folioID,
		State:          model.StateInitial,
		PortType:       req.PortType,
		SubscriberType: subscriberType,
		RecoveryFlag:   model.RecoveryFlagNo,
		DIDA:           req.DIDA,
		DCR:            req.DCR,
		RIDA:           s.ida,
		RCR:            req.RCR,
	}

	xml, err := codec.PinGenerationRequest{
		Timestamp:     now,
		PortType:      p.PortType,
		ContactMsisdn: msisdn,
		PinType:       codec.PinTypeGenerate,
		PortID:        portID,
		DIDA:          p.DIDA,
		DCR:           p.DCR,
		RIDA:          p.RIDA,
		RCR:           p.RCR,
		Numbers:       transform.SingleNumbers([]string{msisdn}),
	}.Build()
	if err != nil {
		log.Error("buildPinGenerationRequest.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, err
	}

	if _, err := s.cases.Create(ctx, p, []string{msisdn}); err != nil {
		log.Error("createPortability.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, fmt.Errorf("create portability %s: %w", portID, err)
	}

	if err := s.send(ctx, portID, model.MessageTypePinGenerationRequest, xml); err != nil {
		log.Error("sendPinGenerationRequest.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, err
	}

	updated, err := s.engine.Transition(ctx, portID, model.StatePinRequested, pinRequestedReason)
	if err != nil {
		log.Error("transitionPinRequested.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, err
	}

	log.Info("pin generation requested", zap.String("port_id", portID))

	return updated, nil
}
