package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AVGC-lgtm/SmartPatrol/api/routes"
	"github.com/AVGC-lgtm/SmartPatrol/internal/assignments"
	"github.com/AVGC-lgtm/SmartPatrol/internal/auth"
	"github.com/AVGC-lgtm/SmartPatrol/internal/checkpoints"
	"github.com/AVGC-lgtm/SmartPatrol/internal/media"
	"github.com/AVGC-lgtm/SmartPatrol/internal/notifications"
	patrolroutes "github.com/AVGC-lgtm/SmartPatrol/internal/routes"
	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	"github.com/AVGC-lgtm/SmartPatrol/internal/stations"
	"github.com/AVGC-lgtm/SmartPatrol/internal/users"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/auth/session"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/metrics"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/migrate"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/redis"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, gcsClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, gcsClient, nil, sessionManager, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	gcsClient *gcs.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	gormDB := dbClient.DB()

	usersRepo := users.NewRepository(gormDB)
	stationsRepo := stations.NewRepository(gormDB)
	checkpointsRepo := checkpoints.NewRepository(gormDB)
	routesRepo := patrolroutes.NewRepository(gormDB)
	assignmentsRepo := assignments.NewRepository(gormDB)
	scansRepo := scans.NewRepository(gormDB)
	mediaRepo := media.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		StationRepo:    stationsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	staffRegisterSvc, err := auth.NewStaffRegisterService(auth.StaffRegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	stationsSvc, err := stations.NewService(stationsRepo, usersRepo)
	if err != nil {
		return routes.Services{}, err
	}

	checkpointsSvc, err := checkpoints.NewService(checkpointsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	routesSvc, err := patrolroutes.NewService(routesRepo, checkpointsRepo, assignmentsRepo, cfg.Patrol)
	if err != nil {
		return routes.Services{}, err
	}

	assignmentsSvc, err := assignments.NewService(assignments.ServiceParams{
		Repo:      assignmentsRepo,
		TxRunner:  dbClient,
		Outbox:    outboxSvc,
		UserRepo:  usersRepo,
		RouteRepo: routesRepo,
		Patrol:    cfg.Patrol,
	})
	if err != nil {
		return routes.Services{}, err
	}

	assignmentQuerySvc, err := assignments.NewQueryService(assignmentsRepo, routesRepo, checkpointsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	mediaSvc, err := media.NewService(media.ServiceParams{
		Repo:     mediaRepo,
		TxRunner: dbClient,
		Outbox:   outboxSvc,
		Scans:    scansRepo,
		Storage:  gcsClient,
		GCS:      cfg.GCS,
		Media:    cfg.Media,
	})
	if err != nil {
		return routes.Services{}, err
	}

	scansSvc, err := scans.NewService(scans.ServiceParams{
		Repo:        scansRepo,
		TxRunner:    dbClient,
		Outbox:      outboxSvc,
		Checkpoints: checkpointsRepo,
		Routes:      routesRepo,
		Assignments: assignmentsRepo,
		Recorder:    assignmentsSvc,
		Evidence:    mediaSvc,
		Metrics:     metrics.NewScanMetrics(prometheus.DefaultRegisterer),
		Patrol:      cfg.Patrol,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authSvc,
		Register:      registerSvc,
		StaffRegister: staffRegisterSvc,
		Stations:      stationsSvc,
		Checkpoints:   checkpointsSvc,
		Routes:        routesSvc,
		Assignments:   assignmentsSvc,
		AssignmentQ:   assignmentQuerySvc,
		Scans:         scansSvc,
		Media:         mediaSvc,
		Notifications: notificationsSvc,
	}, nil
}
