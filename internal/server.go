package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/config"
	"github.com/2beens/dailyfit/internal/db"
	"github.com/2beens/dailyfit/internal/equipment"
	"github.com/2beens/dailyfit/internal/events"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/export"
	"github.com/2beens/dailyfit/internal/mcp"
	"github.com/2beens/dailyfit/internal/middleware"
	"github.com/2beens/dailyfit/internal/outbox"
	"github.com/2beens/dailyfit/internal/profile"
	"github.com/2beens/dailyfit/internal/telemetry/metrics"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/internal/workout"
	"github.com/2beens/dailyfit/pkg"
)

const (
	authScanInterval       = 8 * time.Hour
	eventsRecorderQueueLen = 256
	maxRequestBodyBytes    = 1 << 20
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config  *config.Config
	secrets *config.Secrets
	dbPool  *pgxpool.Pool
	repos   *repositories

	redisClient   *redis.Client
	rateLimiter   middleware.RequestRateLimiter
	authService   *auth.Service
	authenticator auth.Authenticator

	exercisesService *exercises.Service
	workoutManager   *workout.Manager
	eventsService    *events.Service
	eventsRecorder   *events.Recorder
	kafkaPublisher   *events.KafkaPublisher
	outboxStore      *outbox.Store
	outboxSyncer     *outbox.Syncer
	mcpServer        *sdkmcp.Server

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()

	stopBackground context.CancelFunc
}

type NewServerParams struct {
	Config      *config.Config
	Secrets     *config.Secrets
	VersionInfo string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	s := &Server{
		config:       cfg,
		secrets:      params.Secrets,
		versionInfo:  params.VersionInfo,
		otelShutdown: func() {},
	}

	var extraCollectors []prometheus.Collector
	if cfg.Repository == config.RepositoryPostgres {
		dbParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.Secrets.PostgresPassword,
			TracingEnabled: params.Secrets.HoneycombEnabled,
		}
		if cfg.RunMigrations {
			if err := db.RunMigrations(db.ConnString(dbParams)); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		dbPool, err := db.NewDBPool(ctx, dbParams)
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		s.dbPool = dbPool

		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))

		s.repos, err = newPostgresRepositories(ctx, dbPool)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warnln("using in-memory repositories, nothing survives a restart")
		s.repos = newMemoryRepositories()
	}

	s.promRegistry = metrics.SetupPrometheus(extraCollectors...)
	s.metricsManager = metrics.NewManager("dailyfit", "main", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	s.redisClient = redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.Secrets.RedisPassword,
		DB:       0, // use default DB
	})
	rdbStatus := s.redisClient.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}
	s.rateLimiter = redis_rate.NewLimiter(s.redisClient)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.Secrets.HoneycombEnabled, params.Secrets.OtelServiceName, s.redisClient)
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	sessionTTL, err := cfg.SessionTTLDuration()
	if err != nil {
		return nil, err
	}
	s.authService = auth.NewService(
		s.repos.users,
		auth.NewTokenIssuer(params.Secrets.JWTSecret, sessionTTL),
		sessionTTL,
		s.redisClient,
	)
	s.authenticator = s.authService

	var listeners []workout.Listener
	listeners = append(listeners, workout.NewMetricsListener(s.metricsManager))
	if s.dbPool != nil {
		var publisher events.Publisher
		if cfg.KafkaEnabled {
			s.kafkaPublisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
			publisher = s.kafkaPublisher
		}
		s.eventsService = events.NewService(events.NewRepo(s.dbPool), publisher)
		s.eventsRecorder = events.NewRecorder(s.eventsService, s.metricsManager, eventsRecorderQueueLen)
		listeners = append(listeners, s.eventsRecorder)
	}

	s.outboxStore, err = outbox.OpenStore(cfg.OutboxDir)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	s.outboxSyncer = outbox.NewSyncer(s.repos.sessions, s.outboxStore)

	sink := workout.MirroredSink{
		Primary: outbox.NewFallbackSink(s.repos.sessions, s.outboxStore, s.metricsManager),
	}
	if cfg.SheetsEnabled {
		sheetsSink, err := export.NewSheetsSink(ctx, params.Secrets.SheetsCredentialsPath, cfg.SheetsSpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("google sheets sink: %w", err)
		}
		sink.Mirror = workout.MultiSink{sheetsSink}
	}

	s.workoutManager = workout.NewManager(workout.ManagerParams{
		Sink:        sink,
		RestSeconds: cfg.RestSeconds,
		Listeners:   listeners,
	})

	s.exercisesService = exercises.NewService(
		s.repos.exercises,
		s.repos.equipment,
		cfg.CatalogCacheSizeMB,
		cfg.CatalogCacheTTLSeconds,
	)

	if s.dbPool != nil && params.Secrets.MCPSecret != "" {
		s.mcpServer = mcp.NewServer(mcp.NewContextService(
			mcp.NewPoolSchemaRepo(s.dbPool),
			s.repos.sessions,
			s.repos.users,
			s.exercisesService,
		))
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", s.handleRoot).Methods("GET").Name("root")
	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	authHandler := auth.NewHandler(s.authService)
	r.HandleFunc("/auth/signout", authHandler.HandleSignOut).Methods("POST", "OPTIONS").Name("sign-out")
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/signup", authHandler.HandleSignUp).Methods("POST", "OPTIONS").Name("sign-up")
	authRouter.HandleFunc("/signin", authHandler.HandleSignIn).Methods("POST", "OPTIONS").Name("sign-in")
	authRouter.Use(middleware.RateLimit(s.rateLimiter, s.metricsManager, "auth", s.config.SignInRateLimitAllowedPerMin))

	equipmentHandler := equipment.NewHandler(s.repos.equipment)
	r.HandleFunc("/equipment/types", equipmentHandler.HandleTypes).Methods("GET", "OPTIONS").Name("equipment-types")
	r.HandleFunc("/equipment", equipmentHandler.HandleList).Methods("GET", "OPTIONS").Name("list-equipment")
	r.HandleFunc("/equipment", equipmentHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-equipment")
	r.HandleFunc("/equipment/{id}", equipmentHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-equipment")
	r.HandleFunc("/equipment/{id}", equipmentHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-equipment")
	r.HandleFunc("/equipment/{id}", equipmentHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-equipment")

	exercisesHandler := exercises.NewHandler(s.exercisesService)
	r.HandleFunc("/exercises/patterns", exercisesHandler.HandlePatterns).Methods("GET", "OPTIONS").Name("exercise-patterns")
	r.HandleFunc("/exercises", exercisesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/exercises", exercisesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/exercises/{id}", exercisesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	r.HandleFunc("/exercises/{id}", exercisesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/exercises/{id}", exercisesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	r.HandleFunc("/muscles", exercisesHandler.HandleMuscleGroups).Methods("GET", "OPTIONS").Name("muscle-groups")
	r.HandleFunc("/muscles/categories", exercisesHandler.HandleMuscleCategories).Methods("GET", "OPTIONS").Name("muscle-categories")

	profileHandler := profile.NewHandler(s.repos.profiles)
	r.HandleFunc("/profile/options", profileHandler.HandleOptions).Methods("GET", "OPTIONS").Name("profile-options")
	r.HandleFunc("/profile", profileHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/profile", profileHandler.HandleSave).Methods("PUT", "OPTIONS").Name("save-profile")

	workoutHandler := workout.NewHandler(s.workoutManager, s.exercisesService, s.repos.sessions)
	r.HandleFunc("/workout", workoutHandler.HandleSnapshot).Methods("GET", "OPTIONS").Name("workout-snapshot")
	r.HandleFunc("/workout/start", workoutHandler.HandleStart).Methods("POST", "OPTIONS").Name("workout-start")
	r.HandleFunc("/workout/exercise", workoutHandler.HandleSelectExercise).Methods("POST", "OPTIONS").Name("workout-select-exercise")
	r.HandleFunc("/workout/input", workoutHandler.HandleUpdateInput).Methods("PUT", "OPTIONS").Name("workout-input")
	r.HandleFunc("/workout/details", workoutHandler.HandleUpdateDetails).Methods("PUT", "OPTIONS").Name("workout-details")
	r.HandleFunc("/workout/sets", workoutHandler.HandleAddSet).Methods("POST", "OPTIONS").Name("workout-add-set")
	r.HandleFunc("/workout/sets/{id}", workoutHandler.HandleRemoveSet).Methods("DELETE", "OPTIONS").Name("workout-remove-set")
	r.HandleFunc("/workout/rest", workoutHandler.HandleStartRest).Methods("POST", "OPTIONS").Name("workout-start-rest")
	r.HandleFunc("/workout/rest", workoutHandler.HandleStopRest).Methods("DELETE", "OPTIONS").Name("workout-stop-rest")
	r.HandleFunc("/workout/finish", workoutHandler.HandleFinish).Methods("POST", "OPTIONS").Name("workout-finish")

	exportHandler := export.NewHandler(s.repos.sessions)
	outboxHandler := outbox.NewHandler(s.outboxSyncer)
	// static paths before /workouts/{id}
	r.HandleFunc("/workouts/export", exportHandler.HandleExport).Methods("GET", "OPTIONS").Name("workouts-export")
	r.HandleFunc("/workouts/pending", outboxHandler.HandlePending).Methods("GET", "OPTIONS").Name("workouts-pending")
	r.HandleFunc("/workouts/pending/sync", outboxHandler.HandleSync).Methods("POST", "OPTIONS").Name("workouts-pending-sync")
	statsHandler := workout.NewStatsHandler(workout.NewAnalyzer(s.repos.sessions))
	r.HandleFunc("/workouts/stats/exercise/{id}/history", statsHandler.HandleExerciseHistory).Methods("GET", "OPTIONS").Name("workouts-stats-history")
	r.HandleFunc("/workouts/stats/avg-rest", statsHandler.HandleAvgRest).Methods("GET", "OPTIONS").Name("workouts-stats-avg-rest")
	r.HandleFunc("/workouts/stats/percentages", statsHandler.HandleExercisePercentages).Methods("GET", "OPTIONS").Name("workouts-stats-percentages")
	r.HandleFunc("/workouts/list/page/{page}/size/{size}", workoutHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts/{id}", workoutHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{id}", workoutHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")

	if s.eventsService != nil {
		eventsHandler := events.NewHandler(s.eventsService)
		r.HandleFunc("/events/list/page/{page}/size/{size}", eventsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-events")
	}

	if s.mcpServer != nil {
		r.PathPrefix("/mcp").Handler(mcp.NewHTTPHandler(s.mcpServer, s.secrets.MCPSecret)).Name("mcp")
	}

	// all the rest - unhandled paths
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authenticator)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.LimitAndDrainRequest(maxRequestBodyBytes))

	return r, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "dailyfit")
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, s.versionInfo)
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	bgCtx, cancel := context.WithCancel(ctx)
	s.stopBackground = cancel
	go s.scanAuthSessions(bgCtx)

	changes, unsubscribe := s.authService.Subscribe(16)
	go func() {
		defer unsubscribe()
		s.watchAuthState(bgCtx, changes)
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) scanAuthSessions(ctx context.Context) {
	ticker := time.NewTicker(authScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		}
	}
}

// watchAuthState drops the workout controller of a signed out user, unless a
// workout is still running.
func (s *Server) watchAuthState(ctx context.Context, changes <-chan auth.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Authenticated {
				log.Debugf("user %s signed in", change.UserID)
				continue
			}
			if !s.workoutManager.EvictIdle(change.UserID) {
				log.Infof("user %s signed out during a workout, keeping the session", change.UserID)
			}
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.stopBackground != nil {
		s.stopBackground()
	}

	// no more requests, active workouts are gone with the process
	if active := s.workoutManager.Active(); len(active) > 0 {
		log.Warnf("shutting down with %d unfinished workouts", len(active))
	}
	s.workoutManager.Close()

	if s.eventsRecorder != nil {
		s.eventsRecorder.Close()
	}
	if s.kafkaPublisher != nil {
		if err := s.kafkaPublisher.Close(); err != nil {
			log.Errorf("failed to close kafka writers: %s", err)
		}
	}
	if s.outboxStore != nil {
		if err := s.outboxStore.Close(); err != nil {
			log.Errorf("failed to close outbox store: %s", err)
		}
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
