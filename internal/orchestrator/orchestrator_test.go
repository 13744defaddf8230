package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/orchestrator"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
)

const portID = "RCP202503121315000042"

var fixedNow = time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	changes   []model.StateChange
	ready     []string
	scheduled map[string]time.Time
	inbound   []model.MessageType
}

func newNotifier() *recordingNotifier {
	return &recordingNotifier{scheduled: make(map[string]time.Time)}
}

func (n *recordingNotifier) PublishStateChanged(_ context.Context, change model.StateChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.changes = append(n.changes, change)

	return nil
}

func (n *recordingNotifier) PublishReadyToSchedule(_ context.Context, portID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ready = append(n.ready, portID)

	return nil
}

func (n *recordingNotifier) PublishScheduled(_ context.Context, portID string, execDate time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.scheduled[portID] = execDate

	return nil
}

func (n *recordingNotifier) PublishInboundReceived(_ context.Context, _ string, mt model.MessageType, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.inbound = append(n.inbound, mt)

	return nil
}

type fixture struct {
	store      *repository.MemoryStore
	notifier   *recordingNotifier
	dispatcher *orchestrator.Dispatcher
}

func newFixture(t *testing.T, state model.State, msisdns ...string) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	_, err := store.Create(context.Background(), &model.Portability{
		PortID: portID,
		State:  state,
		DIDA:   "DON",
		RIDA:   "RCP",
	}, msisdns)
	require.NoError(t, err)

	notifier := newNotifier()
	engine := statemachine.NewEngine(store, notifier, statemachine.TimerConfig{}, zap.NewNop(),
		statemachine.WithClock(func() time.Time { return fixedNow }))

	dispatcher := orchestrator.NewDispatcher(notifier, zap.NewNop())
	orchestrator.NewHandlers(engine, store, notifier, time.UTC, zap.NewNop()).Register(dispatcher)

	return &fixture{store: store, notifier: notifier, dispatcher: dispatcher}
}

func (f *fixture) state(t *testing.T) *model.Portability {
	t.Helper()

	p, err := f.store.GetByPortID(context.Background(), portID)
	require.NoError(t, err)

	return p
}

func parsed(mt model.MessageType, body any) *codec.Parsed {
	return &codec.Parsed{Type: mt, PortID: portID, Header: codec.Header{Sender: "ABD"}, Body: body}
}

func TestPortRequestAck(t *testing.T) {
	tests := []struct {
		name       string
		ack        *codec.PortRequestAck
		wantState  model.State
		wantReason string
	}{
		{
			name:       "success moves to port requested",
			ack:        &codec.PortRequestAck{PortID: portID, AckStatus: model.AckStatusSuccess},
			wantState:  model.StatePortRequested,
			wantReason: "ABD acknowledged port request",
		},
		{
			name:       "error rejects with remote code",
			ack:        &codec.PortRequestAck{PortID: portID, AckStatus: model.AckStatusError, ErrorCode: "E12", ErrorMessage: "Invalid DIDA"},
			wantState:  model.StateRejected,
			wantReason: "ABD rejected port request: E12 - Invalid DIDA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.StateInitial)

			require.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortRequestAck, tt.ack)))

			assert.Equal(t, tt.wantState, f.state(t).State)
			require.Len(t, f.notifier.changes, 1)
			assert.Equal(t, tt.wantReason, f.notifier.changes[0].Reason)
			assert.Equal(t, []model.MessageType{model.MessageTypePortRequestAck}, f.notifier.inbound)
		})
	}
}

func TestPortRequestAckArmsT1(t *testing.T) {
	f := newFixture(t, model.StateInitial)

	ack := &codec.PortRequestAck{PortID: portID, AckStatus: model.AckStatusSuccess}
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortRequestAck, ack)))

	p := f.state(t)
	require.NotNil(t, p.T1ExpiresAt)
	assert.Equal(t, fixedNow.Add(20*time.Minute), *p.T1ExpiresAt)
}

func TestDuplicateMessageIsIgnored(t *testing.T) {
	f := newFixture(t, model.StateInitial)
	msg := parsed(model.MessageTypePortRequestAck, &codec.PortRequestAck{PortID: portID, AckStatus: model.AckStatusSuccess})

	require.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))

	assert.Equal(t, model.StatePortRequested, f.state(t).State)
	assert.Len(t, f.notifier.changes, 1)
}

func TestPortResponse(t *testing.T) {
	t.Run("accept keeps the case waiting", func(t *testing.T) {
		f := newFixture(t, model.StatePortRequested)

		resp := &codec.PortResponse{PortID: portID, Status: codec.ResponseAccept}
		require.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortResponse, resp)))

		assert.Equal(t, model.StatePortRequested, f.state(t).State)
		assert.Empty(t, f.notifier.changes)
	})

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t, model.StatePortRequested)

		resp := &codec.PortResponse{PortID: portID, Status: codec.ResponseReject, ReasonCode: "R05", ReasonText: "Debt"}
		require.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortResponse, resp)))

		assert.Equal(t, model.StateRejected, f.state(t).State)
		assert.Equal(t, "Donor rejected: R05 - Debt", f.notifier.changes[0].Reason)
	})

	t.Run("partial reject marks numbers only", func(t *testing.T) {
		f := newFixture(t, model.StatePortRequested, "5512345670", "5512345671")

		resp := &codec.PortResponse{
			PortID:          portID,
			Status:          codec.ResponsePartialReject,
			RejectedNumbers: []model.RejectedNumber{{MSISDN: "5512345671", ReasonCode: "R12"}},
		}
		require.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortResponse, resp)))

		p := f.state(t)
		assert.Equal(t, model.StatePortRequested, p.State)

		numbers, err := f.store.Numbers(context.Background(), p.ID)
		require.NoError(t, err)
		require.Len(t, numbers, 2)
		assert.Equal(t, model.NumberStatusActive, numbers[0].Status)
		assert.Equal(t, model.NumberStatusRejected, numbers[1].Status)
		assert.Equal(t, "R12", numbers[1].RejectReason)
	})
}

func TestReadyToSchedule(t *testing.T) {
	f := newFixture(t, model.StatePortRequested)

	msg := parsed(model.MessageTypeReadyToSchedule, &codec.ReadyToSchedule{PortID: portID})
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))

	p := f.state(t)
	assert.Equal(t, model.StateReadyToBeScheduled, p.State)
	require.NotNil(t, p.T3ExpiresAt)
	assert.Equal(t, fixedNow.Add(24*time.Hour), *p.T3ExpiresAt)
	assert.Equal(t, []string{portID}, f.notifier.ready)
}

func TestScheduleNotification(t *testing.T) {
	f := newFixture(t, model.StateReadyToBeScheduled)

	msg := parsed(model.MessageTypeSchedulePortNotification, &codec.ScheduleNotification{
		PortID:          portID,
		PortExecDate:    "20250314120000",
		ReqPortExecDate: "20250314120000",
	})
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))

	execDate := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	p := f.state(t)
	assert.Equal(t, model.StatePortScheduled, p.State)
	require.NotNil(t, p.PortExecDate)
	assert.True(t, execDate.Equal(*p.PortExecDate))
	require.NotNil(t, p.T4ExpiresAt)
	assert.True(t, execDate.Equal(*p.T4ExpiresAt))
	assert.True(t, execDate.Equal(f.notifier.scheduled[portID]))
}

func TestScheduleNotificationInvalidDate(t *testing.T) {
	f := newFixture(t, model.StateReadyToBeScheduled)

	msg := parsed(model.MessageTypeSchedulePortNotification, &codec.ScheduleNotification{PortID: portID, PortExecDate: "tomorrow"})
	err := f.dispatcher.Dispatch(context.Background(), msg)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.StateReadyToBeScheduled, f.state(t).State)
}

func TestCancellationAndReversal(t *testing.T) {
	tests := []struct {
		name   string
		from   model.State
		msg    *codec.Parsed
		want   model.State
		reason string
	}{
		{
			name:   "cancellation accepted",
			from:   model.StatePortScheduled,
			msg:    parsed(model.MessageTypeCancellationAcceptance, &codec.CancellationAck{PortID: portID}),
			want:   model.StateCancelled,
			reason: "ABD accepted cancellation",
		},
		{
			name:   "reversal accepted",
			from:   model.StateReversalRequested,
			msg:    parsed(model.MessageTypeReversalAcceptance, &codec.ReversalAccept{PortID: portID, RevExecDate: "20250320120000"}),
			want:   model.StateReversalScheduled,
			reason: "Reversal accepted",
		},
		{
			name:   "reversal rejected",
			from:   model.StateReversalRequested,
			msg:    parsed(model.MessageTypeReversalRejection, &codec.ReversalReject{PortID: portID, RejectCode: "RV1", RejectReason: "Out of window"}),
			want:   model.StateRejected,
			reason: "Reversal rejected: RV1 - Out of window",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.from)

			require.NoError(t, f.dispatcher.Dispatch(context.Background(), tt.msg))
			assert.Equal(t, tt.want, f.state(t).State)
			require.Len(t, f.notifier.changes, 1)
			assert.Equal(t, tt.reason, f.notifier.changes[0].Reason)
		})
	}
}

func TestIllegalInboundTransitionIsReturned(t *testing.T) {
	f := newFixture(t, model.StatePorted)

	msg := parsed(model.MessageTypeReadyToSchedule, &codec.ReadyToSchedule{PortID: portID})
	err := f.dispatcher.Dispatch(context.Background(), msg)
	assert.ErrorIs(t, err, model.ErrTransition)
	assert.Equal(t, model.StatePorted, f.state(t).State)
}

func TestUnknownCaseIsAcknowledged(t *testing.T) {
	f := newFixture(t, model.StateInitial)

	msg := &codec.Parsed{
		Type:   model.MessageTypePortRequestAck,
		PortID: "XXX202503121315009999",
		Body:   &codec.PortRequestAck{PortID: "XXX202503121315009999", AckStatus: model.AckStatusSuccess},
	}
	assert.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))
}

func TestDispatchWithoutHandler(t *testing.T) {
	f := newFixture(t, model.StateInitial)

	assert.False(t, f.dispatcher.Handles(model.MessageTypeSyncResponse))
	assert.NoError(t, f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypeSyncResponse, nil)))
	assert.Equal(t, model.StateInitial, f.state(t).State)
}

func TestDispatchHandlerErrorIsWrapped(t *testing.T) {
	d := orchestrator.NewDispatcher(nil, zap.NewNop())
	boom := errors.New("boom")
	d.Register(model.MessageTypePinConfirmation, func(context.Context, *codec.Parsed) error { return boom })

	err := d.Dispatch(context.Background(), parsed(model.MessageTypePinConfirmation, nil))
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "handle message 2004")
}

func TestWrongBodyType(t *testing.T) {
	f := newFixture(t, model.StateInitial)

	err := f.dispatcher.Dispatch(context.Background(), parsed(model.MessageTypePortRequestAck, &codec.ReadyToSchedule{PortID: portID}))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDispatchDecodedXML(t *testing.T) {
	f := newFixture(t, model.StateInitial)

	xml := `<?xml version="1.0" encoding="UTF-8"?>
<NPCData xmlns="urn:npc:mx:np">
  <MessageHeader><TransTimestamp>20250312131600</TransTimestamp><Sender>ABD</Sender><NumOfMessages>1</NumOfMessages></MessageHeader>
  <NPCMessage>
    <PortRequestAckMsg><PortID>` + portID + `</PortID><Timestamp>20250312131600</Timestamp></PortRequestAckMsg>
  </NPCMessage>
</NPCData>`

	msg, err := codec.NewDefaultRegistry().Decode(xml)
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), msg))

	assert.Equal(t, model.StatePortRequested, f.state(t).State)
}
