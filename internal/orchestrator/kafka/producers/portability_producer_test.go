package producers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/orchestrator/kafka/mnpevent"
	"github.com/Ometra-Hela/Alize/internal/orchestrator/kafka/producers"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}

	return ""
}

func TestPublishStateChanged(t *testing.T) {
	writer := &fakeWriter{}
	producer := producers.NewPortabilityEventProducer(writer, zap.NewNop())
	at := time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

	err := producer.PublishStateChanged(context.Background(), model.StateChange{
		PortID:   "RCP202503121315000042",
		Previous: model.StateInitial,
		Current:  model.StatePortRequested,
		Reason:   "ABD acknowledged port request",
		At:       at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "RCP202503121315000042", string(msg.Key))
	assert.Equal(t, "application/json", header(msg, "Content-Type"))

	var event mnpevent.Portability
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, header(msg, "MessageId"), event.ID)
	assert.Equal(t, mnpevent.StateChangedEvent, event.EventType)
	assert.Equal(t, "2025-03-12T13:15:00Z", event.Date)
	assert.Equal(t, mnpevent.ServiceSource, event.Source)
	require.NotNil(t, event.Data.State)
	assert.Equal(t, "INITIAL", event.Data.State.Previous)
	assert.Equal(t, "PORT_REQUESTED", event.Data.State.Current)
	assert.Equal(t, "ABD acknowledged port request", event.Data.State.Reason)
}

func TestPublishOtherEvents(t *testing.T) {
	writer := &fakeWriter{}
	producer := producers.NewPortabilityEventProducer(writer, zap.NewNop())
	ctx := context.Background()
	execDate := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, producer.PublishReadyToSchedule(ctx, "RCP202503121315000042"))
	require.NoError(t, producer.PublishScheduled(ctx, "RCP202503121315000042", execDate))
	require.NoError(t, producer.PublishInboundReceived(ctx, "RCP202503121315000042", model.MessageTypePortResponse, "DON"))
	require.Len(t, writer.messages, 3)

	var events []mnpevent.Portability
	for _, m := range writer.messages {
		var e mnpevent.Portability
		require.NoError(t, json.Unmarshal(m.Value, &e))
		events = append(events, e)
	}

	assert.Equal(t, mnpevent.ReadyToScheduleEvent, events[0].EventType)
	assert.Equal(t, mnpevent.ScheduledEvent, events[1].EventType)
	require.NotNil(t, events[1].Data.PortExecDate)
	assert.True(t, execDate.Equal(*events[1].Data.PortExecDate))

	assert.Equal(t, mnpevent.InboundReceivedEvent, events[2].EventType)
	require.NotNil(t, events[2].Data.Inbound)
	assert.Equal(t, 1004, events[2].Data.Inbound.Code)
	assert.Equal(t, "DON", events[2].Data.Inbound.Sender)

	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestPublishWriterError(t *testing.T) {
	producer := producers.NewPortabilityEventProducer(&fakeWriter{err: errors.New("leader not available")}, zap.NewNop())

	err := producer.PublishReadyToSchedule(context.Background(), "RCP202503121315000042")
	assert.ErrorContains(t, err, "leader not available")
}

func TestPublishWithoutWriter(t *testing.T) {
	producer := producers.NewPortabilityEventProducer(nil, zap.NewNop())

	assert.NoError(t, producer.PublishReadyToSchedule(context.Background(), "RCP202503121315000042"))
	assert.Error(t, producer.PublishEvent(context.Background(), "k", nil))
}
