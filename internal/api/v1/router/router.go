package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lmsadmin/internal/api/v1/handler"
	"lmsadmin/internal/config"
	"lmsadmin/internal/form"
	"lmsadmin/internal/mail"
	"lmsadmin/internal/middleware"
	"lmsadmin/internal/migrations"
	"lmsadmin/internal/pgmq"
	"lmsadmin/internal/pubsub"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/service"
	"lmsadmin/internal/session"
	"lmsadmin/internal/storage"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const tokenIssuer = "lmsadmin"

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	ctx := context.Background()
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection (connection pooling)
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	logger.Info().Msg("Database connection successful")

	if cfg.RunMigrations {
		if err := migrations.Up(db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	// 2. Session store and token signing
	sessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	secret, err := resolveSecret(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	tokens := session.NewTokenManager(secret, tokenIssuer)

	// 3. Object storage
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	blobs := storage.NewS3Store(s3Client, cfg.S3Bucket, cfg.PublicObjectBaseURL(), logger)

	// 4. Event publisher, cleanup queue and mailer
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("GCP_PROJECT_ID not set, events are only logged")
		publisher = pubsub.NewLogPublisher(logger)
	}
	cleanupQueue := pgmq.New(db)

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg, logger)
	} else {
		logger.Warn().Msg("SMTP_HOST not set, password reset links are only logged")
		mailer = mail.NewLogMailer(logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize repositories & services & handlers
	store := repository.NewDocumentStore(db, logger)
	userRepo := repository.NewUserRepo(store)
	courseRepo := repository.NewCourseRepo(store)

	authSvc := service.NewAuthService(userRepo, sessions, tokens, mailer, nil, service.AuthSettings{
		SessionTTL:     time.Duration(cfg.SessionTTLHours) * time.Hour,
		GoogleClientID: cfg.GoogleClientID,
		ResetURL:       strings.TrimRight(cfg.FrontendURL, "/") + "/reset-password",
	}, logger)
	userSvc := service.NewUserService(userRepo, sessions, blobs, cleanupQueue, cfg.CleanupQueueName, logger)
	courseSvc := service.NewCourseService(courseRepo, userRepo, blobs, cleanupQueue, cfg.CleanupQueueName, publisher, cfg.CourseEventsTopic, logger)
	dashboardSvc := service.NewDashboardService(userRepo, courseRepo)
	draftSvc := service.NewDraftService(form.NewRegistry(0), courseSvc, userSvc)

	publishSessionEvents(authSvc, publisher, cfg.SessionEventsTopic, logger)

	authHandler := handler.NewAuthHandler(authSvc, validate, logger)
	userHandler := handler.NewUserHandler(userSvc, authSvc, draftSvc, validate, logger)
	courseHandler := handler.NewCourseHandler(courseSvc, draftSvc, logger)
	draftHandler := handler.NewDraftHandler(draftSvc, validate, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(authSvc, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	authHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	courseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	draftHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	dashboardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	healthHandler.RegisterRoutes(apiV1Mux)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), db, nil
}

// OpenDB opens the pgx pool with the environment-specific DSN tweaks.
func OpenDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", prepareDSN(cfg.DBConnectionString, cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("failed to open DB connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// prepareDSN disables SSL for local development and forces the simple query
// protocol elsewhere, where a transaction pooler may sit in front of Postgres.
func prepareDSN(dsn, environment string) string {
	isURL := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	add := func(param string) {
		switch {
		case !isURL:
			dsn += " " + param
		case strings.Contains(dsn, "?"):
			dsn += "&" + param
		default:
			dsn += "?" + param
		}
	}
	if environment == "development" {
		if !strings.Contains(dsn, "sslmode") {
			add("sslmode=disable")
		}
		return dsn
	}
	if !strings.Contains(dsn, "prefer_simple_protocol") {
		add("prefer_simple_protocol=true")
	}
	return dsn
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory")
		return session.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis connection successful")
	return session.NewRedisStore(client), nil
}

func resolveSecret(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (string, error) {
	if cfg.JWTSecretResource == "" {
		return service.ResolveJWTSecret(ctx, cfg, nil, logger)
	}
	sm, err := service.NewSecretManagerService(ctx)
	if err != nil {
		return "", err
	}
	defer sm.Close()
	return service.ResolveJWTSecret(ctx, cfg, sm, logger)
}

// publishSessionEvents forwards sign-in, sign-out and profile changes to the
// session events topic.
func publishSessionEvents(auth service.AuthService, publisher pubsub.Publisher, topic string, logger zerolog.Logger) {
	if topic == "" {
		return
	}
	logger = logger.With().Str("topic", topic).Logger()
	auth.OnSessionChange(func(ev service.SessionEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode session event")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := publisher.Publish(ctx, topic, payload, map[string]string{"type": ev.Type}); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("Failed to publish session event")
		}
	})
}
