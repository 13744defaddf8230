package portability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
	"github.com/Ometra-Hela/Alize/internal/validators"
)

const (
	scheduleHour = 12

	// Requests after 21:59 local time can no longer make the next business day.
	scheduleCutoffMinutes = 21*60 + 59
)

// Schedule sends the schedule request (1006) for a case in READY_TO_BE_SCHEDULED and
// stores the requested execution date. The 1007 notification performs the transition.
func (s *Service) Schedule(ctx context.Context, portID string, req *model.ScheduleRequest) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.Schedule")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID))

	log := s.getNamedLogger(ctx).With(zap.String("port_id", portID))

	if err := s.requireIDA(); err != nil {
		return nil, err
	}

	now := s.now()

	if err := validators.NewScheduleRequestValidator(req, now).Validate(ctx); err != nil {
		log.Error("validateScheduleRequest.fail", zap.Error(err))
		return nil, err
	}

	p, err := s.cases.GetByPortID(ctx, portID)
	if err != nil {
		return nil, err
	}

	if p.State != model.StateReadyToBeScheduled {
		return nil, model.NewTransitionError(p.State, model.StatePortScheduled)
	}

	if p.ReqPortExecDate == nil {
		err := model.NewMissingFieldError("req_port_exec_date")
		log.Error("validateCaseFields.fail", zap.Error(err))

		return nil, err
	}

	execDate := s.defaultExecDate(now)

	var comments string
	if req != nil {
		comments = req.Comments

		if req.PortExecDate != nil {
			execDate = req.PortExecDate.In(s.calendar.Location())
		}
	}

	numbers, err := s.activeNumbers(ctx, p)
	if err != nil {
		return nil, err
	}

	xml, err := codec.SchedulePort{
		Envelope:        codec.Envelope{Sender: s.ida, Timestamp: now},
		PortType:        p.PortType,
		SubscriberType:  p.SubscriberType,
		RecoveryFlag:    p.RecoveryFlag,
		PortID:          p.PortID,
		DIDA:            p.DIDA,
		DCR:             p.DCR,
		RIDA:            p.RIDA,
		RCR:             p.RCR,
		Numbers:         transform.CompactNumbers(numbers),
		PortExecDate:    execDate,
		ReqPortExecDate: *p.ReqPortExecDate,
		Comments:        comments,
	}.Build()
	if err != nil {
		log.Error("buildSchedulePort.fail", zap.Error(err))
		return nil, err
	}

	if err := s.send(ctx, portID, model.MessageTypeSchedulePortRequest, xml); err != nil {
		log.Error("sendSchedulePort.fail", zap.Error(err))
		return nil, err
	}

	// A 1007 applied meanwhile carries the confirmed date, which T4 already follows.
	updated, err := s.cases.UpdateWithLock(ctx, portID, func(c *model.Portability) error {
		if c.State == model.StateReadyToBeScheduled {
			c.PortExecDate = &execDate
		}

		return nil
	})
	if err != nil {
		log.Error("storePortExecDate.fail", zap.Error(err))
		return nil, fmt.Errorf("store execution date of %s: %w", portID, err)
	}

	log.Info("schedule request sent", zap.Time("port_exec_date", execDate))

	return updated, nil
}

// defaultExecDate is noon of the next business day, or of the one after when now is
// past the daily cutoff.
func (s *Service) defaultExecDate(now time.Time) time.Time {
	local := now.In(s.calendar.Location())
	next := s.calendar.NextBusinessDayAt(local, scheduleHour, 0)

	if local.Hour()*60+local.Minute() < scheduleCutoffMinutes {
		return next
	}

	return s.calendar.AddBusinessDays(next, 1)
}
