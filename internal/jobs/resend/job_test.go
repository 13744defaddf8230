package resend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/jobs/resend"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transport/soap"
)

var fixedNow = time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

type fakeDeliverer struct {
	failFor   map[string]error
	delivered []soap.Message
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg soap.Message) (string, error) {
	f.delivered = append(f.delivered, msg)

	if err, ok := f.failFor[msg.PortID]; ok {
		return "", err
	}

	return "OK", nil
}

func seedCase(t *testing.T, store *repository.MemoryStore, portID string, state model.State) {
	t.Helper()

	_, err := store.Create(context.Background(), &model.Portability{PortID: portID, FolioID: "F" + portID, State: state}, nil)
	require.NoError(t, err)
}

func seedFailed(t *testing.T, store *repository.MemoryStore, portID string, retries int) {
	t.Helper()

	require.NoError(t, store.RecordMessage(context.Background(), &model.ProtocolMessage{
		PortID:         portID,
		Direction:      model.DirectionOut,
		TypeCode:       model.MessageTypePortRequest,
		RawXML:         "<PortRequestMsg/>",
		AckStatus:      model.AckStatusError,
		AckText:        "connection refused",
		RetryCount:     retries,
		IdempotencyKey: "key-" + portID,
	}))
}

func messageOf(t *testing.T, store *repository.MemoryStore, portID string) *model.ProtocolMessage {
	t.Helper()

	msgs, err := store.ListByPortID(context.Background(), portID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	return msgs[0]
}

func TestResend(t *testing.T) {
	store := repository.NewMemoryStore()

	seedCase(t, store, "OK", model.StateInitial)
	seedCase(t, store, "DOWN", model.StateInitial)
	seedCase(t, store, "DONE", model.StateTerminated)
	seedCase(t, store, "TIRED", model.StateInitial)

	seedFailed(t, store, "OK", 0)
	seedFailed(t, store, "DOWN", 1)
	seedFailed(t, store, "DONE", 0)
	seedFailed(t, store, "TIRED", 5)
	seedFailed(t, store, "ORPHAN", 0)

	transport := &fakeDeliverer{failFor: map[string]error{
		"DOWN": model.NewTransportError("SOAP fault", errors.New("server busy")),
	}}

	job := resend.NewJob(resend.Config{}, store, transport, zap.NewNop(), resend.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, job.Run(context.Background()))

	delivered := make([]string, 0, len(transport.delivered))
	for _, m := range transport.delivered {
		delivered = append(delivered, m.PortID)
		assert.Equal(t, model.MessageTypePortRequest, m.Type)
		assert.Equal(t, "<PortRequestMsg/>", m.XML)
	}
	assert.ElementsMatch(t, []string{"OK", "DOWN"}, delivered)

	ok := messageOf(t, store, "OK")
	assert.Equal(t, model.AckStatusSuccess, ok.AckStatus)
	assert.Equal(t, "OK", ok.AckText)
	require.NotNil(t, ok.SentAt)
	assert.Equal(t, fixedNow, *ok.SentAt)

	down := messageOf(t, store, "DOWN")
	assert.Equal(t, model.AckStatusError, down.AckStatus)
	assert.Equal(t, 2, down.RetryCount)
	assert.Equal(t, "server busy", down.AckText)

	assert.Equal(t, model.AckStatusError, messageOf(t, store, "DONE").AckStatus)
	assert.Equal(t, 5, messageOf(t, store, "TIRED").RetryCount)
}

func TestResendSkipsWhenLocked(t *testing.T) {
	store := repository.NewMemoryStore()
	seedCase(t, store, "OK", model.StateInitial)
	seedFailed(t, store, "OK", 0)

	locked, err := store.TryLockJob(context.Background(), "resend")
	require.NoError(t, err)
	require.True(t, locked)

	transport := &fakeDeliverer{}
	job := resend.NewJob(resend.Config{}, store, transport, zap.NewNop())

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, transport.delivered)
}
