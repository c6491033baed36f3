package router

import (
	"log"
	"time"

	"github.com/forumbase/notifyd/internal/handlers"
	"github.com/forumbase/notifyd/internal/middleware"
	"github.com/forumbase/notifyd/internal/models"
	"github.com/forumbase/notifyd/internal/notifications"
	"github.com/forumbase/notifyd/internal/repositories"
	"github.com/forumbase/notifyd/pkg/config"
	"github.com/forumbase/notifyd/pkg/firebase"
	"github.com/forumbase/notifyd/pkg/hooks"
	"github.com/forumbase/notifyd/pkg/logger"
	"github.com/forumbase/notifyd/pkg/mailer"
	"github.com/forumbase/notifyd/pkg/metrics"
	"github.com/forumbase/notifyd/pkg/tasks"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes wires repositories, the notification engine and all routes,
// and returns the engine for the caller's prune scheduler.
func SetupRoutes(e *echo.Echo, db *config.DB, firebaseApp *firebase.App, cfg *config.Config, appLogger *logger.Logger) *notifications.Engine {
	// AutoMigrate PostgreSQL models
	err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.NotificationSetting{},
		&models.UserBlock{},
		&models.Group{},
		&models.GroupMember{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	settingsRepo := repositories.NewPostgresSettingsRepository(db.Postgres)
	blockRepo := repositories.NewPostgresBlockRepository(db.Postgres)
	groupRepo := repositories.NewPostgresGroupRepository(db.Postgres)
	recordRepo := repositories.NewMongoNotificationRepository(db.Mongo.Database("notifyd"))
	indexRepo := repositories.NewRedisIndexRepository(db.Redis)

	// --- Engine collaborators ---
	bus := hooks.NewBus(appLogger)
	queue := tasks.NewQueue(time.Duration(cfg.PushDebounceMS)*time.Millisecond, nil)
	engineMetrics := metrics.New("engine", nil)
	emailSender := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, appLogger)

	var realtime notifications.RealtimePublisher
	if firebaseApp != nil {
		realtime = firebaseApp
	}

	engine := notifications.NewEngine(notifications.Deps{
		Records:  recordRepo,
		Indexes:  indexRepo,
		Users:    userRepo,
		Settings: settingsRepo,
		Blocks:   blockRepo,
		Groups:   groupRepo,
		Emailer:  emailSender,
		Realtime: realtime,
		Bus:      bus,
		Queue:    queue,
		Metrics:  engineMetrics,
		Log:      appLogger,
	}, notifications.Options{
		BaseURL:          cfg.BaseURL,
		Retention:        time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		BatchSize:        cfg.PushBatchSize,
		BatchPause:       time.Duration(cfg.PushBatchPauseMS) * time.Millisecond,
		EmailConcurrency: cfg.EmailConcurrency,
		StripEmailImages: cfg.EmailStripImages,
	})
	log.Println("Notification engine configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	notificationHandler := handlers.NewNotificationHandler(engine, indexRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Internal service-to-service API
	internal := e.Group("/api/v1/internal")
	internal.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	notificationHandler.RegisterInternalRoutes(internal)
	log.Println("Internal notification routes configured.")

	log.Println("All routes configured.")
	return engine
}
