// main wires the hrgate service: config, persistence, the three feature
// services, the audit pipeline, and the HTTP server lifecycle. Business
// logic lives in the internal feature packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	attendancehandler "hrgate/internal/attendance/handler"
	attendancemodels "hrgate/internal/attendance/models"
	attendanceservice "hrgate/internal/attendance/service"
	attendancestore "hrgate/internal/attendance/store"
	"hrgate/internal/audit"
	audithandler "hrgate/internal/audit/handler"
	authhandler "hrgate/internal/auth/handler"
	biometrichandler "hrgate/internal/biometric/handler"
	biometricservice "hrgate/internal/biometric/service"
	biometricstore "hrgate/internal/biometric/store"
	"hrgate/internal/device"
	geofencehandler "hrgate/internal/geofence/handler"
	geofenceservice "hrgate/internal/geofence/service"
	geofencestore "hrgate/internal/geofence/store"
	"hrgate/internal/jwttoken"
	"hrgate/internal/platform/config"
	"hrgate/internal/platform/httpserver"
	"hrgate/internal/platform/logger"
	"hrgate/internal/platform/metrics"
	"hrgate/internal/platform/middleware"
	"hrgate/internal/platform/postgres"
	"hrgate/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("hrgate exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	auditDB, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer auditDB.Close()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: non-blocking recorder, worker persisting to postgres
	// and optionally fanning out to Kafka.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	recorder := audit.NewRecorder(0, log, m)
	auditStore := audit.NewPostgresStore(auditDB)
	worker := audit.NewWorker(auditStore, sink, recorder.Inbox(), log, m)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	devices := device.NewService(true)

	// Geofence validator.
	geofenceSvc := geofenceservice.New(geofencestore.NewPostgresStore(pool))

	// Biometric gate.
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return err
	}
	var sessions biometricservice.SessionStore
	if redisClient != nil {
		sessions = biometricstore.NewRedisSessionStore(redisClient.Client, cfg.CeremonyTTL)
	} else {
		log.Warn("redis not configured, ceremony sessions held in memory")
		sessions = biometricstore.NewInMemorySessionStore(cfg.CeremonyTTL)
	}
	biometricSvc := biometricservice.New(
		webAuthn,
		biometricstore.NewPostgresStore(pool),
		sessions,
		tokens,
		cfg.ProofTTL,
		recorder,
		m,
		log,
	)

	// Attendance recorder.
	workdayStart, err := attendancemodels.ParseTimeOfDay(cfg.WorkdayStart)
	if err != nil {
		return err
	}
	lateAfter, err := attendancemodels.ParseTimeOfDay(cfg.LateAfter)
	if err != nil {
		return err
	}
	attendanceSvc := attendanceservice.New(
		attendancestore.NewPostgresStore(pool),
		geofenceSvc,
		tokens,
		attendancemodels.Schedule{WorkdayStart: workdayStart, LateAfter: lateAfter},
		devices,
		recorder,
		m,
		log,
	)

	router := newRouter(cfg, log, m, tokens, devices,
		attendancehandler.New(attendanceSvc, log),
		biometrichandler.New(biometricSvc, log),
		geofencehandler.New(geofenceSvc, recorder, log),
		authhandler.New(tokens, cfg.AccessTokenTTL, log),
		audithandler.New(auditStore, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		log.Info("hrgate listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newRouter(
	cfg config.Server,
	log *slog.Logger,
	m *metrics.Metrics,
	tokens *jwttoken.Service,
	devices *device.Service,
	attendance *attendancehandler.Handler,
	biometric *biometrichandler.Handler,
	geofence *geofencehandler.Handler,
	auth *authhandler.Handler,
	auditTrail *audithandler.Handler,
) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Logger(log),
		middleware.Timeout(30*time.Second),
		middleware.LatencyMiddleware(m),
		middleware.ClientIP,
		middleware.Device(devices),
	)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Employee surface: bearer token required.
	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(tokens, log))
		attendance.Register(r)
		biometric.Register(r)
		geofence.Register(r)
	})

	// Admin surface: shared HR token.
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAdmin(cfg.AdminTokenHash, log))
		attendance.RegisterAdmin(r)
		geofence.RegisterAdmin(r)
		auth.RegisterAdmin(r)
		auditTrail.RegisterAdmin(r)
	})

	return router
}
