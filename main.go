package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"site-ops-server/internal/config"
	"site-ops-server/internal/logger"
	"site-ops-server/internal/metrics"
	"site-ops-server/internal/models"
	"site-ops-server/internal/notify"
	"site-ops-server/internal/routes"
	"site-ops-server/internal/scheduler"
	"site-ops-server/internal/storage"
)

func main() {
	log := logger.NewLogger()

	// Load environment variables; a missing .env is fine in production
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file loaded", "error", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config", "error", err)
	}

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal("Error connecting to database", "error", err)
	}

	// Build the scheduling engine over its persistence port
	m := metrics.NewMetrics("siteops")
	engine, err := scheduler.NewEngine(storage.NewVisitStore(db), log)
	if err != nil {
		log.Fatal("Error loading visit records", "error", err)
	}

	// Run the reminder sweep until shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := scheduler.NewSweeper(
		engine,
		notify.NewDBNotifier(db, log, m),
		time.Duration(cfg.Scheduler.ReminderLeadMinutes)*time.Minute,
		time.Duration(cfg.Scheduler.SweepIntervalSeconds)*time.Second,
		log,
	)
	sweeper.Observe = m.SweepDuration.Observe
	go sweeper.Run(ctx)

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, db, engine, m, cfg)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("Server starting", "port", cfg.Port)
	if err := router.Run(serverAddr); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}
}
