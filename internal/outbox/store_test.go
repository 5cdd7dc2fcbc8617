package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/2beens/dailyfit/internal/outbox"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *outbox.Store {
	t.Helper()
	store, err := outbox.OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func finishedSession(userID uuid.UUID) workout.Session {
	start := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	reps := 5
	return workout.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      start,
		StartTime: start,
		EndTime:   &end,
		ExerciseSets: []workout.ExerciseSet{
			{ID: uuid.New(), ExerciseID: uuid.New(), SetNumber: 1, Reps: &reps},
		},
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	alice, bob := uuid.New(), uuid.New()
	first := finishedSession(alice)
	second := finishedSession(alice)
	other := finishedSession(bob)

	require.NoError(t, store.Enqueue(ctx, first, errors.New("connection refused")))
	require.NoError(t, store.Enqueue(ctx, second, nil))
	require.NoError(t, store.Enqueue(ctx, other, nil))

	count, err := store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = store.Count(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	pending, err := store.Pending(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].Session.ID)
	assert.Equal(t, "connection refused", pending[0].LastError)
	assert.Zero(t, pending[0].Attempts)
	assert.Equal(t, first.StartTime, pending[0].Session.StartTime)
	require.Len(t, pending[0].Session.ExerciseSets, 1)
	assert.Equal(t, 5, *pending[0].Session.ExerciseSets[0].Reps)
	assert.False(t, pending[0].QueuedAt.IsZero())

	require.NoError(t, store.MarkFailed(ctx, first.ID, errors.New("timeout")))
	require.NoError(t, store.MarkFailed(ctx, first.ID, errors.New("timeout again")))
	pending, err = store.Pending(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "timeout again", pending[0].LastError)

	// queueing the same session again replaces it
	require.NoError(t, store.Enqueue(ctx, first, nil))
	count, err = store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.Remove(ctx, first.ID))
	pending, err = store.Pending(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
