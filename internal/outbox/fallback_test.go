package outbox_test

import (
	"context"
	"errors"
	"testing"

	"github.com/2beens/dailyfit/internal/outbox"
	"github.com/2beens/dailyfit/internal/telemetry/metrics"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySink struct {
	err   error
	saved []uuid.UUID
}

func (s *flakySink) SaveSession(_ context.Context, session workout.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, session.ID)
	return nil
}

func TestFallbackSink(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	primary := &flakySink{}
	m := metrics.NewTestManager()
	sink := outbox.NewFallbackSink(primary, store, m)

	userID := uuid.New()
	ok := finishedSession(userID)
	require.NoError(t, sink.SaveSession(ctx, ok))
	assert.Equal(t, []uuid.UUID{ok.ID}, primary.saved)

	primary.err = errors.New("postgres unavailable")
	queued := finishedSession(userID)
	err := sink.SaveSession(ctx, queued)
	require.Error(t, err)
	assert.ErrorIs(t, err, workout.ErrSessionQueued)
	assert.Contains(t, err.Error(), "postgres unavailable")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterSessionsQueued))

	count, err := store.Count(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFallbackSink_QueueFailure(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Close())

	sink := outbox.NewFallbackSink(&flakySink{err: errors.New("postgres unavailable")}, store, nil)
	err := sink.SaveSession(context.Background(), finishedSession(uuid.New()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, workout.ErrSessionQueued)
}

func TestSyncer_Sync(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	primary := &flakySink{}
	syncer := outbox.NewSyncer(primary, store)

	alice, bob := uuid.New(), uuid.New()
	a1, a2 := finishedSession(alice), finishedSession(alice)
	b1 := finishedSession(bob)
	for _, s := range []workout.Session{a1, a2, b1} {
		require.NoError(t, store.Enqueue(ctx, s, errors.New("offline")))
	}

	primary.err = errors.New("still offline")
	result, err := syncer.Sync(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, outbox.SyncResult{Synced: 0, Failed: 2, Pending: 2}, result)

	pending, err := syncer.Pending(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "still offline", pending[0].LastError)

	primary.err = nil
	result, err = syncer.Sync(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, outbox.SyncResult{Synced: 2}, result)
	assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, primary.saved)

	pending, err = syncer.Pending(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// other users' queues are untouched
	count, err := store.Count(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
