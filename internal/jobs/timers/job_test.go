package timers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/jobs/timers"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
)

var fixedNow = time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []model.StateChange
}

func (r *recordingPublisher) PublishStateChanged(_ context.Context, change model.StateChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.changes = append(r.changes, change)

	return nil
}

func (r *recordingPublisher) reasons() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.changes))
	for _, c := range r.changes {
		out[c.PortID] = c.Reason
	}

	return out
}

// everyCaseStore hands every case to the sweep regardless of state, the way a
// concurrent transition between query and lock would look.
type everyCaseStore struct {
	*repository.MemoryStore
	portIDs []string
}

func (s *everyCaseStore) FindExpired(ctx context.Context, _ model.Timer, _ time.Time, _ int) ([]*model.Portability, error) {
	out := make([]*model.Portability, 0, len(s.portIDs))
	for _, id := range s.portIDs {
		out = append(out, &model.Portability{PortID: id})
	}

	return out, nil
}

func ptr(t time.Time) *time.Time { return &t }

func seed(t *testing.T, store *repository.MemoryStore, p *model.Portability) {
	t.Helper()

	_, err := store.Create(context.Background(), p, nil)
	require.NoError(t, err)
}

func newJob(store timers.Store, repo *repository.MemoryStore, pub *recordingPublisher) *timers.Job {
	clock := func() time.Time { return fixedNow }
	engine := statemachine.NewEngine(repo, pub, statemachine.TimerConfig{}, zap.NewNop(), statemachine.WithClock(clock))

	return timers.NewJob(timers.Config{}, store, engine, zap.NewNop(), timers.WithClock(clock))
}

func stateOf(t *testing.T, store *repository.MemoryStore, portID string) model.State {
	t.Helper()

	p, err := store.GetByPortID(context.Background(), portID)
	require.NoError(t, err)

	return p.State
}

func TestSweepExpiresDeadlines(t *testing.T) {
	store := repository.NewMemoryStore()
	past := ptr(fixedNow.Add(-time.Minute))
	future := ptr(fixedNow.Add(time.Hour))

	seed(t, store, &model.Portability{PortID: "T1", FolioID: "F1", State: model.StatePortRequested, T1ExpiresAt: past})
	seed(t, store, &model.Portability{PortID: "T3", FolioID: "F3", State: model.StateReadyToBeScheduled, T3ExpiresAt: past})
	seed(t, store, &model.Portability{PortID: "T4", FolioID: "F4", State: model.StatePortScheduled, T4ExpiresAt: past})
	seed(t, store, &model.Portability{PortID: "FRESH", FolioID: "F5", State: model.StatePortRequested, T1ExpiresAt: future})
	seed(t, store, &model.Portability{PortID: "MOVED", FolioID: "F6", State: model.StateReadyToBeScheduled, T1ExpiresAt: past, T3ExpiresAt: future})

	pub := &recordingPublisher{}
	require.NoError(t, newJob(store, store, pub).Run(context.Background()))

	assert.Equal(t, model.StateTerminated, stateOf(t, store, "T1"))
	assert.Equal(t, model.StateTerminated, stateOf(t, store, "T3"))
	assert.Equal(t, model.StateCancelled, stateOf(t, store, "T4"))
	assert.Equal(t, model.StatePortRequested, stateOf(t, store, "FRESH"))
	assert.Equal(t, model.StateReadyToBeScheduled, stateOf(t, store, "MOVED"))

	assert.Equal(t, map[string]string{
		"T1": "T1 timer expired",
		"T3": "T3 timer expired",
		"T4": "T4 timer expired",
	}, pub.reasons())

	moved, err := store.GetByPortID(context.Background(), "MOVED")
	require.NoError(t, err)
	assert.NotNil(t, moved.T1ExpiresAt)
}

func TestSweepGuardSkipsStaleAndMissingCases(t *testing.T) {
	repo := repository.NewMemoryStore()
	past := ptr(fixedNow.Add(-time.Minute))

	seed(t, repo, &model.Portability{PortID: "STALE", FolioID: "F1", State: model.StateReadyToBeScheduled, T1ExpiresAt: past})
	seed(t, repo, &model.Portability{PortID: "DUE", FolioID: "F2", State: model.StatePortRequested, T1ExpiresAt: past})

	store := &everyCaseStore{MemoryStore: repo, portIDs: []string{"GONE", "STALE", "DUE"}}
	pub := &recordingPublisher{}

	require.NoError(t, newJob(store, repo, pub).Run(context.Background()))

	assert.Equal(t, model.StateReadyToBeScheduled, stateOf(t, repo, "STALE"))
	assert.Equal(t, model.StateTerminated, stateOf(t, repo, "DUE"))
	assert.Equal(t, map[string]string{"DUE": "T1 timer expired"}, pub.reasons())
}

func TestSweepSkipsWhenJobLockHeld(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, &model.Portability{PortID: "T1", FolioID: "F1", State: model.StatePortRequested, T1ExpiresAt: ptr(fixedNow.Add(-time.Minute))})

	locked, err := store.TryLockJob(context.Background(), "timer-sweep")
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, newJob(store, store, &recordingPublisher{}).Run(context.Background()))
	assert.Equal(t, model.StatePortRequested, stateOf(t, store, "T1"))

	store.UnlockJob(context.Background(), "timer-sweep")

	require.NoError(t, newJob(store, store, &recordingPublisher{}).Run(context.Background()))
	assert.Equal(t, model.StateTerminated, stateOf(t, store, "T1"))
}
