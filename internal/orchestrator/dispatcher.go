package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
)

const dispatcherLogName = "dispatcher"

// Handler reacts to one decoded inbound message.
type Handler func(ctx context.Context, msg *codec.Parsed) error

type InboundNotifier interface {
	PublishInboundReceived(ctx context.Context, portID string, mt model.MessageType, sender string) error
}

// Dispatcher routes inbound messages to the handler registered for their type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[model.MessageType]Handler
	notifier InboundNotifier
	logger   *zap.Logger
}

func NewDispatcher(notifier InboundNotifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[model.MessageType]Handler),
		notifier: notifier,
		logger:   logger.Named(dispatcherLogName),
	}
}

func (d *Dispatcher) Register(mt model.MessageType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[mt] = h
}

func (d *Dispatcher) Handles(mt model.MessageType) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.handlers[mt]

	return ok
}

// Dispatch runs the handler for msg. Types without a handler are logged and dropped.
// Handler failures are logged with the case context and returned, so the caller does
// not acknowledge a message that was not applied.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *codec.Parsed) error {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("port_id", msg.PortID),
		attribute.Int("message_type", msg.Type.Code()),
	)

	msgType := strconv.Itoa(msg.Type.Code())

	if d.notifier != nil && msg.PortID != "" {
		if err := d.notifier.PublishInboundReceived(ctx, msg.PortID, msg.Type, msg.Header.Sender); err != nil {
			d.logger.Warn("dispatch.notify.fail", zap.String("port_id", msg.PortID), zap.Error(err))
		}
	}

	d.mu.RLock()
	handler, ok := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !ok {
		observability.RecordInboundMessage(msgType, "unhandled")
		d.logger.Warn("no handler for inbound message, dropping",
			zap.String("port_id", msg.PortID),
			zap.Int("message_type", msg.Type.Code()))

		return nil
	}

	if err := handler(ctx, msg); err != nil {
		observability.RecordInboundMessage(msgType, "failure")
		d.logger.Error("dispatch.fail",
			zap.String("port_id", msg.PortID),
			zap.Int("message_type", msg.Type.Code()),
			zap.Error(err))

		return fmt.Errorf("handle message %d for %s: %w", msg.Type.Code(), msg.PortID, err)
	}

	observability.RecordInboundMessage(msgType, "success")

	return nil
}
