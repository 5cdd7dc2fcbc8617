//go:build integration

package test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/dailyfit/internal/events"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/profile"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestWorkout_FullSession() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, _ := s.signUpAndIn(ctx)

	resp := s.request(ctx, http.MethodGet, "/exercises?muscleGroup=Middle%20Chest", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	catalog := decodeBody[[]exercises.Exercise](t, resp)
	require.NotEmpty(t, catalog)
	exercise := catalog[0]

	resp = s.request(ctx, http.MethodPost, "/workout/start", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	started := decodeBody[workout.Session](t, resp)

	resp = s.request(ctx, http.MethodPost, "/workout/exercise", token, workout.SelectExerciseRequest{
		ExerciseID: exercise.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))

	effort := 4
	for _, weight := range []string{"60", "62.5", "65"} {
		resp = s.request(ctx, http.MethodPost, "/workout/sets", token, workout.SetRequest{
			Reps:   "8",
			Weight: weight,
			Effort: &effort,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
		resp.Body.Close()
	}

	resp = s.request(ctx, http.MethodPut, "/workout/details", token, workout.SessionDetails{
		Notes: ptr("felt strong"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))
	resp.Body.Close()

	resp = s.request(ctx, http.MethodPost, "/workout/finish", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	finished := decodeBody[workout.Session](t, resp)
	assert.Equal(t, started.ID, finished.ID)
	require.NotNil(t, finished.EndTime)
	assert.Len(t, finished.ExerciseSets, 3)

	var setsCount int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exercise_set WHERE workout_session_id = $1`, started.ID,
	).Scan(&setsCount))
	assert.Equal(t, 3, setsCount)

	resp = s.request(ctx, http.MethodGet, "/workouts/"+started.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decodeBody[workout.Session](t, resp)
	require.Len(t, stored.ExerciseSets, 3)
	require.NotNil(t, stored.ExerciseSets[1].WeightKg)
	assert.Equal(t, 62.5, *stored.ExerciseSets[1].WeightKg)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "felt strong", *stored.Notes)

	resp = s.request(ctx, http.MethodGet, "/workouts/stats/exercise/"+exercise.ID.String()+"/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[workout.ExerciseHistory](t, resp)
	require.Len(t, history.Stats, 1)
	for _, dayStats := range history.Stats {
		assert.Equal(t, 3, dayStats.Sets)
		assert.Equal(t, 8, dayStats.AvgReps)
		assert.Equal(t, 62.5, dayStats.AvgWeightKg)
	}

	// events are written by a background recorder
	require.Eventually(t, func() bool {
		resp := s.request(ctx, http.MethodGet, "/events/list/page/1/size/20", token, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		list := decodeBody[events.EventsListResponse](t, resp)
		// start, three sets, finish
		return list.Total == 5
	}, 5*time.Second, 100*time.Millisecond)

	resp = s.request(ctx, http.MethodGet, "/workouts/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	resp.Body.Close()

	resp = s.request(ctx, http.MethodGet, "/workouts/pending", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(ctx, http.MethodDelete, "/workouts/"+started.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(ctx, http.MethodGet, "/workouts/"+started.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestWorkout_SessionsAreScopedPerUser() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ownerToken, _ := s.signUpAndIn(ctx)
	otherToken, _ := s.signUpAndIn(ctx)

	resp := s.request(ctx, http.MethodPost, "/workout/start", ownerToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	started := decodeBody[workout.Session](t, resp)

	resp = s.request(ctx, http.MethodGet, "/workout", otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := decodeBody[workout.Snapshot](t, resp)
	assert.False(t, snapshot.Active)

	resp = s.request(ctx, http.MethodPost, "/workout/finish", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(ctx, http.MethodGet, "/workouts/"+started.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(ctx, http.MethodGet, "/workouts/list/page/1/size/10", otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[workout.SessionsListResponse](t, resp)
	assert.Equal(t, 0, list.Total)
}

func (s *IntegrationTestSuite) TestProfile_SaveAndGet() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, signIn := s.signUpAndIn(ctx)

	age := 34
	goal := profile.GoalStrength
	resp := s.request(ctx, http.MethodPut, "/profile", token, profile.UserProfile{
		Age:         &age,
		FitnessGoal: &goal,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))
	resp.Body.Close()

	resp = s.request(ctx, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decodeBody[profile.UserProfile](t, resp)
	assert.Equal(t, signIn.UserID, stored.ID)
	require.NotNil(t, stored.Age)
	assert.Equal(t, 34, *stored.Age)
	require.NotNil(t, stored.FitnessGoal)
	assert.Equal(t, profile.GoalStrength, *stored.FitnessGoal)

	resp = s.request(ctx, http.MethodPut, "/profile", token, profile.UserProfile{Age: ptr(-3)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("negative age should be rejected: %s", readBody(t, resp)))
}

func ptr[T any](v T) *T {
	return &v
}
