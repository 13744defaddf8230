package validators

import (
	"context"
	"fmt"
	"time"

	"github.com/Ometra-Hela/Alize/internal/converters"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
)

// MaxNumbersPerRequest bounds the expanded size of one request.
const MaxNumbersPerRequest = 100_000

type InitiateRequestValidator struct {
	req    *model.InitiateRequest
	ownIDA string
	loc    *time.Location
}

func NewInitiateRequestValidator(req *model.InitiateRequest, ownIDA string, loc *time.Location) *InitiateRequestValidator {
	return &InitiateRequestValidator{req: req, ownIDA: ownIDA, loc: loc}
}

func (v *InitiateRequestValidator) Validate(ctx context.Context) *model.Error {
	if v.req == nil {
		return model.NewMissingFieldError("request")
	}

	if err := ValidateStruct(ctx, v.req); err != nil {
		return err
	}

	if v.req.DIDA == v.ownIDA {
		return model.NewValidationError("donor %s is the receiving operator", v.req.DIDA)
	}

	if _, err := transform.ParseProtocolTime(v.req.SubsReqTime, v.loc); err != nil {
		return model.NewValidationError("subs_req_time %q is not a YmdHis timestamp", v.req.SubsReqTime)
	}

	return validateRanges(v.req.Numbers)
}

func validateRanges(ranges []model.NumberRange) *model.Error {
	total, err := transform.CountNumbers(ranges)
	if err != nil {
		return model.ToError(err)
	}

	if total > MaxNumbersPerRequest {
		return model.NewValidationError("request covers %d numbers, limit is %d", total, MaxNumbersPerRequest)
	}

	return nil
}

type ScheduleRequestValidator struct {
	req *model.ScheduleRequest
	now time.Time
}

func NewScheduleRequestValidator(req *model.ScheduleRequest, now time.Time) *ScheduleRequestValidator {
	return &ScheduleRequestValidator{req: req, now: now}
}

func (v *ScheduleRequestValidator) Validate(ctx context.Context) *model.Error {
	if v.req == nil {
		return nil
	}

	if err := ValidateStruct(ctx, v.req); err != nil {
		return err
	}

	if v.req.PortExecDate != nil && !v.req.PortExecDate.After(v.now) {
		return model.NewValidationError("port_exec_date %s is not in the future", v.req.PortExecDate.Format(time.RFC3339))
	}

	return nil
}

type PinRequestValidator struct {
	req *model.PinRequest
}

func NewPinRequestValidator(req *model.PinRequest) *PinRequestValidator {
	return &PinRequestValidator{req: req}
}

func (v *PinRequestValidator) Validate(ctx context.Context) *model.Error {
	if v.req == nil {
		return model.NewMissingFieldError("request")
	}

	if err := ValidateStruct(ctx, v.req); err != nil {
		return err
	}

	if msisdn := converters.NormalizeMSISDN(v.req.ContactMSISDN); len(msisdn) != 10 {
		return model.NewValidationError("contact_msisdn %q is not a ten digit national number", v.req.ContactMSISDN)
	}

	return nil
}

// OptionalRequestValidator covers requests whose fields are all optional.
type OptionalRequestValidator struct {
	req any
}

func NewOptionalRequestValidator(req any) *OptionalRequestValidator {
	return &OptionalRequestValidator{req: req}
}

func (v *OptionalRequestValidator) Validate(ctx context.Context) *model.Error {
	switch r := v.req.(type) {
	case nil:
		return nil
	case *model.CancelRequest:
		if r == nil {
			return nil
		}
	case *model.ReversalRequest:
		if r == nil {
			return nil
		}
	default:
		return model.InternalError(fmt.Errorf("unsupported request %T", v.req))
	}

	return ValidateStruct(ctx, v.req)
}

var (
	_ DTOValidator = (*InitiateRequestValidator)(nil)
	_ DTOValidator = (*ScheduleRequestValidator)(nil)
	_ DTOValidator = (*PinRequestValidator)(nil)
	_ DTOValidator = (*OptionalRequestValidator)(nil)
)
