package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/logingate/internal/config"
	"github.com/2beens/logingate/internal/db"
	"github.com/2beens/logingate/internal/gate"
	"github.com/2beens/logingate/internal/middleware"
	"github.com/2beens/logingate/internal/session"
	"github.com/2beens/logingate/internal/spa"
	"github.com/2beens/logingate/internal/telemetry/metrics"
	"github.com/2beens/logingate/internal/telemetry/tracing"
	"github.com/2beens/logingate/internal/users"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

const serviceName = "logingate"

type credentialStore interface {
	UserExists(ctx context.Context, name, password string) (bool, error)
	CreateUser(ctx context.Context, user *users.User) bool
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config         *config.Config
	dbPool         *pgxpool.Pool
	redisClient    *redis.Client
	credentials    credentialStore
	sessionManager *session.Manager

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	DBPassword              string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, serviceName)
	if err != nil {
		return nil, err
	}

	dbParams := db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.DBPassword,
		SSLMode:        cfg.PostgresSSLMode,
		MaxConns:       cfg.PostgresMaxConns,
		TracingEnabled: params.HoneycombTracingEnabled,
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, dbParams); err != nil {
			otelShutdown()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		otelShutdown()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(metrics.PrometheusParams{
		DBPool:       dbPool,
		DBName:       cfg.PostgresDBName,
		SessionStore: cfg.SessionStore,
	})
	metricsManager := metrics.NewManager(serviceName, "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := &Server{
		config:         cfg,
		dbPool:         dbPool,
		credentials:    users.NewRepo(dbPool),
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		rdb.AddHook(redisotel.NewTracingHook())
		s.redisClient = rdb

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			s.closeResources()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Debugf("redis ping: %s", rdbStatus.Val())
		store = session.NewRedisStore(rdb)
	default:
		log.Warnln("using in-memory session store, sessions are lost on restart")
		store = session.NewMemoryStore(cfg.SessionCacheSizeMB)
	}

	s.sessionManager = session.NewManager(
		store,
		cfg.SessionTTL,
		cfg.SessionCookieName,
		cfg.IsProduction(),
	)

	if ready, err := spa.StaticDirReady(cfg.StaticDir); err != nil || !ready {
		log.Warnf("static dir [%s] has no index.html, the app shell will not be served", cfg.StaticDir)
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	gateHandler := gate.NewHandler(
		gate.NewService(s.credentials, s.sessionManager),
		s.sessionManager,
		s.metricsManager,
	)
	r.HandleFunc("/", gateHandler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	r.HandleFunc("/creandoUser", gateHandler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	r.HandleFunc("/check-auth", gateHandler.HandleCheckAuth).Methods("GET").Name("check-auth")
	r.HandleFunc("/logout", gateHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")

	// all the rest - the single page app
	spaHandler := otelhttp.WithRouteTag("/{spa}", spa.NewHandler(s.config.StaticDir))
	r.PathPrefix("/").Handler(spaHandler).Methods("GET", "HEAD").Name("spa")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.config.ProtectedPaths)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(session.Middleware(s.sessionManager))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest(gate.MaxBodyBytes))

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

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

	go s.runSessionSweep(ctx, s.config.SessionCleanupInterval)

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// runSessionSweep removes expired sessions every interval until ctx is done.
func (s *Server) runSessionSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("session sweep stopped")
			return
		case <-ticker.C:
			removed, err := s.sessionManager.ScanAndClean(ctx)
			if err != nil {
				log.Errorf("session sweep: %s", err)
				continue
			}
			s.metricsManager.CounterSessionsCleaned.Add(float64(removed))
			if removed > 0 {
				log.Debugf("session sweep removed %d expired sessions", removed)
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

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("http server shutdown: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("metrics http server shutdown: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	err = multierr.Append(err, s.closeResources())
	for _, e := range multierr.Errors(err) {
		log.Errorf(" >>> graceful shutdown: %s", e)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

// closeResources releases the redis client, the db pool and the tracer provider.
func (s *Server) closeResources() error {
	var err error
	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	return err
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
