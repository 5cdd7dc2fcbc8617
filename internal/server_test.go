package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/config"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/outbox"
	"github.com/2beens/dailyfit/internal/telemetry/metrics"
	"github.com/2beens/dailyfit/internal/workout"
)

const testToken = "test-token"

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(_ context.Context, _ string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: limit.Burst - 1}, nil
}

type testServer struct {
	server        *Server
	router        http.Handler
	redisMock     redismock.ClientMock
	tokens        *auth.TokenIssuer
	authenticator *auth.StaticAuthenticator
	userID        uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.Parse("dev", `
[development]
repository = "memory"
allowed_origins = ["http://localhost:3000"]
`)
	require.NoError(t, err)
	cfg.OutboxDir = t.TempDir()

	redisClient, redisMock := redismock.NewClientMock()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	metricsManager := metrics.NewTestManager()

	repos := newMemoryRepositories()
	outboxStore, err := outbox.OpenStore(cfg.OutboxDir)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, outboxStore.Close())
	})

	userID := uuid.New()
	authenticator := auth.NewStaticAuthenticator()
	authenticator.Add(testToken, &auth.Claims{UserID: userID, Email: "lifter@dailyfit.test"})

	s := &Server{
		config:         cfg,
		secrets:        &config.Secrets{},
		versionInfo:    "test-version",
		repos:          repos,
		redisClient:    redisClient,
		rateLimiter:    allowAllLimiter{},
		authService:    auth.NewService(repos.users, tokens, time.Hour, redisClient),
		authenticator:  authenticator,
		outboxStore:    outboxStore,
		outboxSyncer:   outbox.NewSyncer(repos.sessions, outboxStore),
		metricsManager: metricsManager,
		otelShutdown:   func() {},
	}
	s.exercisesService = exercises.NewService(repos.exercises, repos.equipment, 1, 60)
	s.workoutManager = workout.NewManager(workout.ManagerParams{
		Sink:        outbox.NewFallbackSink(repos.sessions, outboxStore, metricsManager),
		RestSeconds: cfg.RestSeconds,
		Listeners:   []workout.Listener{workout.NewMetricsListener(metricsManager)},
	})
	t.Cleanup(s.workoutManager.Close)

	router, err := s.routerSetup()
	require.NoError(t, err)

	return &testServer{
		server:        s,
		router:        router,
		redisMock:     redisMock,
		tokens:        tokens,
		authenticator: authenticator,
		userID:        userID,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func TestServer_RootAndVersion(t *testing.T) {
	ts := newTestServer(t)

	for path, expected := range map[string]string{
		"/":        "dailyfit",
		"/version": "test-version",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("User-Agent", "test-agent")
		rr := httptest.NewRecorder()
		ts.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, expected, rr.Body.String(), path)
	}
}

func TestServer_Unauthorized(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/workout", nil)
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/workout", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Authorization", "Bearer not-a-known-token")
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServer_CorsForbidden(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_UnknownPath(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/not/a/route", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_PublicCatalogRoutes(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/exercises/patterns",
		"/muscles",
		"/muscles/categories",
		"/equipment/types",
		"/profile/options",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("User-Agent", "test-agent")
		rr := httptest.NewRecorder()
		ts.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestServer_WorkoutFlow(t *testing.T) {
	ts := newTestServer(t)
	benchPress := exercises.CommonExercises()[0]

	rr := ts.do(t, http.MethodPost, "/workout/start", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var started workout.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.Equal(t, ts.userID, started.UserID)

	// second start keeps the running session
	rr = ts.do(t, http.MethodPost, "/workout/start", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPost, "/workout/exercise", `{"exerciseId":"`+benchPress.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPost, "/workout/sets", `{"reps":"8","weight":"62,5","effort":4}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var set workout.ExerciseSet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	require.NotNil(t, set.Reps)
	require.NotNil(t, set.WeightKg)
	assert.Equal(t, 8, *set.Reps)
	assert.Equal(t, 62.5, *set.WeightKg)
	assert.Equal(t, 1, set.SetNumber)

	rr = ts.do(t, http.MethodPost, "/workout/sets", `{"reps":"x","weight":"60"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodGet, "/workout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot workout.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.Active)
	require.NotNil(t, snapshot.Session)
	assert.Len(t, snapshot.Session.ExerciseSets, 1)

	rr = ts.do(t, http.MethodPost, "/workout/finish", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/workouts/list/page/1/size/10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list workout.SessionsListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, started.ID, list.Sessions[0].ID)

	rr = ts.do(t, http.MethodGet, "/workouts/"+started.ID.String(), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/workouts/pending", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(ts.server.metricsManager.CounterSessionsFinished))
}

func TestServer_WatchAuthState(t *testing.T) {
	ts := newTestServer(t)
	s := ts.server

	idleUser := uuid.New()
	busyUser := uuid.New()
	idle := s.workoutManager.For(idleUser)
	s.workoutManager.For(busyUser).Start()

	ctx, cancel := context.WithCancel(context.Background())
	changes, unsubscribe := s.authService.Subscribe(4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		s.watchAuthState(ctx, changes)
	}()
	defer func() {
		cancel()
		<-done
	}()

	signOut := func(userID uuid.UUID, tokenID string) {
		token, err := ts.tokens.Issue(userID, "someone@dailyfit.test", tokenID, time.Now())
		require.NoError(t, err)
		ts.redisMock.ExpectDel("dailyfit-session||" + tokenID).SetVal(1)
		ts.redisMock.ExpectSRem("dailyfit-sessions", tokenID).SetVal(1)
		require.NoError(t, s.authService.SignOut(ctx, token))
	}

	signOut(idleUser, "idle-token-id")
	signOut(busyUser, "busy-token-id")
	require.NoError(t, ts.redisMock.ExpectationsWereMet())

	assert.Eventually(t, func() bool {
		_, ok := s.workoutManager.Lookup(idleUser)
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, _, err := idle.Start()
	assert.ErrorIs(t, err, workout.ErrControllerClosed)

	c, ok := s.workoutManager.Lookup(busyUser)
	require.True(t, ok)
	assert.True(t, c.IsActive())
	assert.False(t, c.IsClosed())
}

func TestServer_connStateMetrics(t *testing.T) {
	s := &Server{metricsManager: metrics.NewTestManager()}

	s.connStateMetrics(nil, http.StateNew)
	s.connStateMetrics(nil, http.StateNew)
	s.connStateMetrics(nil, http.StateActive)
	s.connStateMetrics(nil, http.StateClosed)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.GaugeRequests))
}
