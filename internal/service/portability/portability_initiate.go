package portability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
	"github.com/Ometra-Hela/Alize/internal/validators"
)

// Initiate opens a case in INITIAL and sends the port request (1001). The 1002
// acknowledgement moves it forward. When the send fails the created case is returned
// together with the error and stays in INITIAL for the resend job.
func (s *Service) Initiate(ctx context.Context, req *model.InitiateRequest) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.Initiate")
	defer span.End()

	log := s.getNamedLogger(ctx)

	if err := s.requireIDA(); err != nil {
		return nil, err
	}

	if err := validators.NewInitiateRequestValidator(req, s.ida, s.calendar.Location()).Validate(ctx); err != nil {
		log.Error("validateInitiateRequest.fail", zap.Error(err))
		return nil, err
	}

	now := s.now()

	portID, folioID, err := s.newIdentifiers()
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("port_id", portID))

	subsReqTime, err := transform.ParseProtocolTime(req.SubsReqTime, s.calendar.Location())
	if err != nil {
		return nil, model.NewValidationError("subs_req_time %q is not a YmdHis timestamp", req.SubsReqTime)
	}

	reqExec := s.calendar.AddBusinessDays(s.calendar.ClampToWorkingWindow(now), 2)

	numbers, err := s.expandNumbers(ctx, portID, req.Numbers)
	if err != nil {
		return nil, err
	}

	recovery := req.RecoveryFlag
	if recovery == "" {
		recovery = model.RecoveryFlagNo
	}

	p := &model.Portability{
		PortID:          portID,
		FolioID:         folioID,
		State:           model.StateInitial,
		PortType:        req.PortType,
		SubscriberType:  req.SubscriberType,
		RecoveryFlag:    recovery,
		DIDA:            req.DIDA,
		DCR:             req.DCR,
		RIDA:            s.ida,
		RCR:             req.RCR,
		SubsReqTime:     &subsReqTime,
		ReqPortExecDate: &reqExec,
		PIN:             req.Pin,
		Comments:        req.Comments,
	}

	xml, err := codec.PortRequest{
		Envelope:        codec.Envelope{Sender: s.ida, Timestamp: now},
		PortType:        p.PortType,
		SubscriberType:  p.SubscriberType,
		RecoveryFlag:    p.RecoveryFlag,
		PortID:          p.PortID,
		FolioID:         p.FolioID,
		SubsReqTime:     subsReqTime,
		ReqPortExecDate: reqExec,
		DIDA:            p.DIDA,
		DCR:             p.DCR,
		RIDA:            p.RIDA,
		RCR:             p.RCR,
		Numbers:         req.Numbers,
		Pin:             req.Pin,
		Comments:        req.Comments,
		Attachments:     req.Attachments,
	}.Build()
	if err != nil {
		log.Error("buildPortRequest.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, err
	}

	created, err := s.cases.Create(ctx, p, numbers)
	if err != nil {
		log.Error("createPortability.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, fmt.Errorf("create portability %s: %w", portID, err)
	}

	if err := s.send(ctx, portID, model.MessageTypePortRequest, xml); err != nil {
		log.Error("sendPortRequest.fail", zap.String("port_id", portID), zap.Error(err))
		return created, err
	}

	log.Info("port request sent",
		zap.String("port_id", portID),
		zap.String("folio_id", folioID),
		zap.Int("numbers", len(numbers)))

	return created, nil
}

func (s *Service) expandNumbers(ctx context.Context, portID string, ranges []model.NumberRange) ([]string, error) {
	log := s.getNamedLogger(ctx)

	for _, r := range ranges {
		size, err := transform.RangeSize(r)
		if err != nil {
			return nil, err
		}

		if size > largeRangeThreshold {
			log.Warn("large number range",
				zap.String("port_id", portID),
				zap.String("start", r.Start),
				zap.String("end", r.End),
				zap.Int("size", size))
		}
	}

	return transform.ExpandRanges(ranges)
}
