package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/orchestrator/kafka/mnpevent"
)

const portabilityEventProducerLogName = "portability-event producer"

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type IPortabilityEventProducer interface {
	PublishStateChanged(ctx context.Context, change model.StateChange) error
	PublishReadyToSchedule(ctx context.Context, portID string) error
	PublishScheduled(ctx context.Context, portID string, execDate time.Time) error
	PublishInboundReceived(ctx context.Context, portID string, mt model.MessageType, sender string) error
}

type PortabilityEventProducer struct {
	writer MessageWriter
	now    func() time.Time
	logger *zap.Logger
}

// NewPortabilityEventProducer returns a producer writing to writer. A nil writer turns
// every publish into a debug log, for deployments without a broker.
func NewPortabilityEventProducer(writer MessageWriter, logger *zap.Logger) *PortabilityEventProducer {
	return &PortabilityEventProducer{
		writer: writer,
		now:    time.Now,
		logger: logger.Named(portabilityEventProducerLogName),
	}
}

func (p *PortabilityEventProducer) PublishStateChanged(ctx context.Context, change model.StateChange) error {
	tracer := diagnostics.TracerFromContext(ctx)

	spanCtx, span := tracer.Start(ctx, "PortabilityEventProducer.PublishStateChanged")
	defer span.End()

	at := change.At
	if at.IsZero() {
		at = p.now()
	}

	event := mnpevent.NewEvent(mnpevent.StateChangedEvent, at, mnpevent.PortabilityData{
		PortID: change.PortID,
		State: &mnpevent.StateDTO{
			Previous: string(change.Previous),
			Current:  string(change.Current),
			Reason:   change.Reason,
		},
	})

	return p.PublishEvent(spanCtx, change.PortID, event)
}

func (p *PortabilityEventProducer) PublishReadyToSchedule(ctx context.Context, portID string) error {
	tracer := diagnostics.TracerFromContext(ctx)

	spanCtx, span := tracer.Start(ctx, "PortabilityEventProducer.PublishReadyToSchedule")
	defer span.End()

	event := mnpevent.NewEvent(mnpevent.ReadyToScheduleEvent, p.now(), mnpevent.PortabilityData{PortID: portID})

	return p.PublishEvent(spanCtx, portID, event)
}

func (p *PortabilityEventProducer) PublishScheduled(ctx context.Context, portID string, execDate time.Time) error {
	tracer := diagnostics.TracerFromContext(ctx)

	spanCtx, span := tracer.Start(ctx, "PortabilityEventProducer.PublishScheduled")
	defer span.End()

	event := mnpevent.NewEvent(mnpevent.ScheduledEvent, p.now(), mnpevent.PortabilityData{
		PortID:       portID,
		PortExecDate: &execDate,
	})

	return p.PublishEvent(spanCtx, portID, event)
}

func (p *PortabilityEventProducer) PublishInboundReceived(ctx context.Context, portID string, mt model.MessageType, sender string) error {
	tracer := diagnostics.TracerFromContext(ctx)

	spanCtx, span := tracer.Start(ctx, "PortabilityEventProducer.PublishInboundReceived")
	defer span.End()

	event := mnpevent.NewEvent(mnpevent.InboundReceivedEvent, p.now(), mnpevent.PortabilityData{
		PortID: portID,
		Inbound: &mnpevent.MessageDTO{
			Code:   mt.Code(),
			Label:  mt.Label(),
			Sender: sender,
		},
	})

	return p.PublishEvent(spanCtx, portID, event)
}

func (p *PortabilityEventProducer) PublishEvent(ctx context.Context, eventKey string, event *mnpevent.Portability) error {
	if event == nil {
		return fmt.Errorf("%s: failed to publish event: given nil event", portabilityEventProducerLogName)
	}

	tracer := diagnostics.TracerFromContext(ctx)

	spanCtx, span := tracer.Start(ctx, "PortabilityEventProducer.PublishEvent")
	defer span.End()

	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", event.EventType),
		attribute.String("port_id", event.Data.PortID),
	)

	if p.writer == nil {
		p.logger.Debug("event not published, no writer configured",
			zap.String("event.type", event.EventType),
			zap.String("port_id", event.Data.PortID))

		return nil
	}

	rawEvent, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(
			"failed to serialize portability event",
			zap.Error(err))

		return fmt.Errorf("%s: failed to serialize portability event: %w", portabilityEventProducerLogName, err)
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(eventKey),
		Value: rawEvent,
		Headers: []kafka.Header{
			{Key: mnpevent.ContentTypeHeader, Value: []byte(mnpevent.EventContentType)},
			{Key: mnpevent.MessageIDHeader, Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(spanCtx, kafkaMessage); err != nil {
		p.logger.Error(
			"failed to publish event",
			zap.String("event.type", event.EventType),
			zap.Error(err))

		return fmt.Errorf("%s: failed to publish event: %w", portabilityEventProducerLogName, err)
	}

	return nil
}
