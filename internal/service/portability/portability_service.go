package portability

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/calendar"
	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/ids"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
	"github.com/Ometra-Hela/Alize/internal/transport/soap"
)

type IPortabilityService interface {
	Initiate(ctx context.Context, req *model.InitiateRequest) (*model.Portability, error)
	Schedule(ctx context.Context, portID string, req *model.ScheduleRequest) (*model.Portability, error)
	Cancel(ctx context.Context, portID string, req *model.CancelRequest) (*model.Portability, error)
	RequestPIN(ctx context.Context, req *model.PinRequest) (*model.Portability, error)
	RequestReversal(ctx context.Context, portID string, req *model.ReversalRequest) (*model.Portability, error)
	Get(ctx context.Context, portID string) (*Details, error)
}

const (
	serviceLogName = "portability-service"

	// largeRangeThreshold is the range size above which Initiate logs a warning.
	largeRangeThreshold = 10_000
)

// Sender delivers one outbound protocol message and records the exchange.
type Sender interface {
	SendWithRetry(ctx context.Context, msg soap.Message) (*soap.Result, error)
}

type Transitioner interface {
	Transition(ctx context.Context, portID string, to model.State, reason string, opts ...statemachine.TransitionOption) (*model.Portability, error)
}

// Details is a case together with its numbers and the exchanges recorded for it.
type Details struct {
	Portability *model.Portability
	Numbers     []model.PortabilityNumber
	Messages    []*model.ProtocolMessage
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	ida      string
	cases    repository.IPortabilityRepository
	messages repository.IMessageRepository
	engine   Transitioner
	sender   Sender
	calendar *calendar.Calendar
	ids      *ids.Generator
	now      func() time.Time
}

func NewService(
	ida string,
	cases repository.IPortabilityRepository,
	messages repository.IMessageRepository,
	engine Transitioner,
	sender Sender,
	cal *calendar.Calendar,
	gen *ids.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		ida:      ida,
		cases:    cases,
		messages: messages,
		engine:   engine,
		sender:   sender,
		calendar: cal,
		ids:      gen,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) getNamedLogger(ctx context.Context) *zap.Logger {
	return diagnostics.LoggerFromContext(ctx).Named(serviceLogName)
}

func (s *Service) requireIDA() error {
	if s.ida == "" {
		return model.NewConfigurationError("operator IDA is not configured")
	}

	return nil
}

// newIdentifiers draws a fresh PortID and FolioID for the own operator.
func (s *Service) newIdentifiers() (portID, folioID string, err error) {
	if portID, err = s.ids.PortID(s.ida); err != nil {
		return "", "", fmt.Errorf("generate port id: %w", err)
	}

	if folioID, err = s.ids.FolioID(s.ida); err != nil {
		return "", "", fmt.Errorf("generate folio id: %w", err)
	}

	return portID, folioID, nil
}

// activeNumbers lists the numbers of the case that the donor has not rejected.
func (s *Service) activeNumbers(ctx context.Context, p *model.Portability) ([]string, error) {
	numbers, err := s.cases.Numbers(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load numbers of %s: %w", p.PortID, err)
	}

	active := make([]string, 0, len(numbers))

	for _, n := range numbers {
		if n.Status == model.NumberStatusActive {
			active = append(active, n.MSISDN)
		}
	}

	return active, nil
}

func (s *Service) send(ctx context.Context, portID string, mt model.MessageType, xml string) error {
	_, err := s.sender.SendWithRetry(ctx, soap.Message{PortID: portID, Type: mt, XML: xml})
	if err != nil {
		return fmt.Errorf("send %s for %s: %w", mt.Label(), portID, err)
	}

	return nil
}
