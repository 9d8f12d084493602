package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"lmsadmin/internal/api/v1/router"
	"lmsadmin/internal/config"
	"lmsadmin/internal/logger"
	"lmsadmin/internal/orchestrator/cleanup"
	"lmsadmin/internal/pgmq"
	"lmsadmin/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Orchestrator mode: blob-cleanup")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize DB connection
	db, err := router.OpenDB(cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Initialize PGMQ client
	pgmqClient := pgmq.New(db)
	logger.Info().Msg("PGMQ client initialized")

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "blob-cleanup":
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create S3 client: %v", err)
		}
		blobs := storage.NewS3Store(s3Client, cfg.S3Bucket, cfg.PublicObjectBaseURL(), logger)
		runErr = cleanup.Run(ctx, logger, cfg, pgmqClient, blobs)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
