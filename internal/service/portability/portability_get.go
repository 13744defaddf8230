package portability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
)

func (s *Service) Get(ctx context.Context, portID string) (*Details, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityService.Get")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID))

	log := s.getNamedLogger(ctx)

	p, err := s.cases.GetByPortID(ctx, portID)
	if err != nil {
		log.Warn("getPortability.fail", zap.String("port_id", portID), zap.Error(err))
		return nil, err
	}

	numbers, err := s.cases.Numbers(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load numbers of %s: %w", portID, err)
	}

	messages, err := s.messages.ListByPortID(ctx, portID)
	if err != nil {
		return nil, fmt.Errorf("load messages of %s: %w", portID, err)
	}

	return &Details{Portability: p, Numbers: numbers, Messages: messages}, nil
}
