package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "safetyband-cloud/internal/api/http"
	"safetyband-cloud/internal/audit"
	"safetyband-cloud/internal/auth"
	"safetyband-cloud/internal/config"
	"safetyband-cloud/internal/eventing"
	exposureapp "safetyband-cloud/internal/exposure/application"
	exposurerepo "safetyband-cloud/internal/exposure/infrastructure/postgres"
	"safetyband-cloud/internal/exposure/infrastructure/redislock"
	exposurehttp "safetyband-cloud/internal/exposure/interfaces/http"
	masterdataapp "safetyband-cloud/internal/masterdata/application"
	masterdatarepo "safetyband-cloud/internal/masterdata/infrastructure/postgres"
	"safetyband-cloud/internal/observability/metrics"
	settingsapp "safetyband-cloud/internal/settings/application"
	settingsrepo "safetyband-cloud/internal/settings/infrastructure/postgres"
	settingshttp "safetyband-cloud/internal/settings/interfaces/http"
	telemetryapp "safetyband-cloud/internal/telemetry/application"
	telemetryevents "safetyband-cloud/internal/telemetry/application/events"
	telemetrypostgres "safetyband-cloud/internal/telemetry/infrastructure/postgres"
	telemetryhttp "safetyband-cloud/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config error: %v", err)
	}
	categoryDefaults, err := cfg.CategoryDefaults()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	wearableRepo := masterdatarepo.NewWearableRepository(db)
	organizationRepo := masterdatarepo.NewOrganizationRepository(db)
	beaconRepo := masterdatarepo.NewBeaconRepository(db)
	chargerRepo := masterdatarepo.NewChargerRepository(db)
	eventRepo := telemetrypostgres.NewEventRepository(db)
	sampleRepo := exposurerepo.NewSampleRepository(db)
	configRepo := settingsrepo.NewConfigurationRepository(db)

	bus := eventing.NewInMemoryBus()
	processedStore := eventing.NewMemoryProcessedStore(eventing.DefaultProcessedCapacity)

	groupingOpts := []exposureapp.Option{
		exposureapp.WithLockTTL(cfg.GroupingLockTTL),
		exposureapp.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		locker, client, err := redislock.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Fatalf("redis error: %v", err)
		}
		defer client.Close()
		groupingOpts = append(groupingOpts, exposureapp.WithLocker(locker))
		logger.Printf("hav grouping lock: redis %s", cfg.RedisAddr)
	}
	groupingService, err := exposureapp.NewGroupingService(wearableRepo, organizationRepo, sampleRepo, sampleRepo, groupingOpts...)
	if err != nil {
		logger.Fatalf("grouping service error: %v", err)
	}
	exposureapp.WireExposureEventBus(bus, groupingService)
	eventing.Subscribe(bus, eventing.EventTypeOf[telemetryevents.TelemetryReceived](), "telemetry.log", func(ctx context.Context, event any) error {
		evt, ok := event.(telemetryevents.TelemetryReceived)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("event received: wearable=%s type=%s duration=%d pending=%t corr=%s", evt.DisplayID, evt.EventType, evt.Duration, evt.Pending, eventing.CorrelationIDFromContext(ctx))
		return nil
	}, processedStore)

	sweeper, err := exposureapp.NewSweeper(groupingService, cfg.PendingSweepInterval, logger)
	if err != nil {
		logger.Fatalf("sweeper error: %v", err)
	}

	receiveService, err := telemetryapp.NewReceiveService(
		wearableRepo,
		chargerRepo,
		beaconRepo,
		eventRepo,
		sampleRepo,
		bus,
		systemClock{},
		telemetryapp.WithMinHAVDuration(cfg.MinHAVDuration),
		telemetryapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("receive service error: %v", err)
	}
	settingsService, err := settingsapp.NewService(
		wearableRepo,
		organizationRepo,
		configRepo,
		bus,
		systemClock{},
		settingsapp.WithDefaults(categoryDefaults),
		settingsapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("settings service error: %v", err)
	}
	timezoneService, err := masterdataapp.NewTimezoneService(chargerRepo, systemClock{}, cfg.FallbackZone)
	if err != nil {
		logger.Fatalf("timezone service error: %v", err)
	}

	deviceHandler, err := telemetryhttp.NewDeviceHandler(receiveService, settingsService, timezoneService, chargerRepo, bus, cfg.FirmwareVersion, logger)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}
	exposureHandler, err := exposurehttp.NewHandler(wearableRepo, sampleRepo, groupingService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("exposure handler error: %v", err)
	}
	configHandler, err := settingshttp.NewConfigurationHandler(settingsService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("configuration handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	router, err := apihttp.NewRouter(apihttp.RouterConfig{
		Logger:         logger,
		DB:             db,
		Auth:           auth.NewMiddleware([]byte(cfg.JWTSecret), policy),
		IngestAuth:     auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), cfg.IngestSkew),
		Device:         deviceHandler,
		Exposure:       exposureHandler,
		Configurations: configHandler,
		Metrics:        promhttp.Handler(),
	})
	if err != nil {
		logger.Fatalf("router error: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if sweeper.Enabled() {
			logger.Printf("pending sweep every %s", cfg.PendingSweepInterval)
		}
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server error: %v", err)
	}
	logger.Printf("shutdown complete")
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
