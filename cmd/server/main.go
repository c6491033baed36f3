package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/forumbase/notifyd/internal/router"
	"github.com/forumbase/notifyd/pkg/config"
	"github.com/forumbase/notifyd/pkg/firebase"
	"github.com/forumbase/notifyd/pkg/logger"
	"github.com/forumbase/notifyd/validators"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	appLogger := logger.New("notifyd")

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase (realtime push); the service runs without it
	ctx := context.Background()
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
	} else {
		appLogger.Warn("Firebase credentials not configured, realtime push disabled")
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	engine := router.SetupRoutes(e, db, firebaseApp, cfg, appLogger)

	// Validator
	e.Validator = validators.NewValidator()

	// Retention sweeps run on a fixed schedule; redundant runs are safe
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.PruneIntervalMins) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			engine.Prune(context.Background())
		}
	}()

	// Prometheus metrics endpoint
	go func() {
		if err := http.ListenAndServe(":"+cfg.MetricsPort, promhttp.Handler()); err != nil {
			appLogger.Errorf("metrics server stopped: %v", err)
		}
	}()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
