package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AVGC-lgtm/SmartPatrol/api/controllers"
	"github.com/AVGC-lgtm/SmartPatrol/api/middleware"
	"github.com/AVGC-lgtm/SmartPatrol/internal/assignments"
	"github.com/AVGC-lgtm/SmartPatrol/internal/auth"
	"github.com/AVGC-lgtm/SmartPatrol/internal/checkpoints"
	"github.com/AVGC-lgtm/SmartPatrol/internal/media"
	"github.com/AVGC-lgtm/SmartPatrol/internal/notifications"
	routesvc "github.com/AVGC-lgtm/SmartPatrol/internal/routes"
	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	"github.com/AVGC-lgtm/SmartPatrol/internal/stations"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/auth/session"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/bigquery"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	pkgredis "github.com/AVGC-lgtm/SmartPatrol/pkg/redis"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/storage/gcs"
)

// Services groups the domain services the API surface exposes.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	StaffRegister auth.StaffRegisterService
	Stations      stations.Service
	Checkpoints   checkpoints.Service
	Routes        routesvc.Service
	Assignments   assignments.Service
	AssignmentQ   assignments.QueryService
	Scans         scans.Service
	Media         media.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gcsClient gcs.Pinger,
	bigqueryClient bigquery.Pinger,
	sessionChecker session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	var idemStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, gcsClient, bigqueryClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(idemStore, logg),
		).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.StationContext(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/stations/me", func(r chi.Router) {
			r.Get("/", controllers.StationProfile(svcs.Stations, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.SystemRoleAdmin, logg))
				r.Put("/", controllers.StationUpdate(svcs.Stations, logg))
				r.Get("/users", controllers.StationUsers(svcs.Stations, logg))
				r.Post("/users/invite", controllers.StationInviteUser(svcs.StaffRegister, logg))
			})
		})

		r.Route("/checkpoints", func(r chi.Router) {
			r.Get("/", controllers.CheckpointList(svcs.Checkpoints, logg))
			r.Get("/{checkpointId}", controllers.CheckpointGet(svcs.Checkpoints, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.SystemRoleAdmin, logg))
				r.Post("/", controllers.CheckpointCreate(svcs.Checkpoints, logg))
				r.Put("/{checkpointId}", controllers.CheckpointUpdate(svcs.Checkpoints, logg))
				r.Delete("/{checkpointId}", controllers.CheckpointDeactivate(svcs.Checkpoints, logg))
				r.Get("/{checkpointId}/qr", controllers.CheckpointQR(svcs.Checkpoints, logg))
				r.Post("/{checkpointId}/qr/rotate", controllers.CheckpointQRRotate(svcs.Checkpoints, logg))
			})
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", controllers.RouteList(svcs.Routes, logg))
			r.Get("/{routeId}", controllers.RouteGet(svcs.Routes, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.SystemRoleAdmin, logg))
				r.Post("/", controllers.RouteCreate(svcs.Routes, logg))
				r.Put("/{routeId}", controllers.RouteUpdate(svcs.Routes, logg))
				r.Delete("/{routeId}", controllers.RouteDeactivate(svcs.Routes, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", controllers.AssignmentList(svcs.AssignmentQ, logg))
			r.Get("/{assignmentId}", controllers.AssignmentGet(svcs.AssignmentQ, logg))
			r.Get("/{assignmentId}/progress", controllers.AssignmentProgress(svcs.AssignmentQ, logg))
			r.Get("/{assignmentId}/scans", controllers.ScanListByAssignment(svcs.Scans, logg))
			r.Post("/{assignmentId}/start", controllers.AssignmentStart(svcs.Assignments, logg))
			r.Post("/{assignmentId}/complete", controllers.AssignmentComplete(svcs.Assignments, logg))
			r.Post("/{assignmentId}/cancel", controllers.AssignmentCancel(svcs.Assignments, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.SystemRoleSupervisor, logg))
				r.Post("/", controllers.AssignmentCreate(svcs.Assignments, logg))
				r.Delete("/{assignmentId}", controllers.AssignmentDelete(svcs.Assignments, logg))
			})
		})

		r.Post("/scans", controllers.ScanSubmit(svcs.Scans, logg))

		r.Route("/media", func(r chi.Router) {
			r.Get("/", controllers.MediaList(svcs.Media, logg))
			r.Post("/presign", controllers.MediaPresign(svcs.Media, logg))
			r.Post("/finalize", controllers.MediaFinalize(svcs.Media, logg))
			r.Delete("/{mediaId}", controllers.MediaDelete(svcs.Media, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	return r
}
