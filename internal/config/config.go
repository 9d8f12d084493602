package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	RunMigrations      bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// JWTSecret is used as-is unless JWTSecretResource names a Secret Manager
	// version, in which case the secret is fetched at startup.
	JWTSecret         string `envconfig:"JWT_SECRET"`
	JWTSecretResource string `envconfig:"JWT_SECRET_RESOURCE"`
	SessionTTLHours   int    `envconfig:"SESSION_TTL_HOURS" default:"24"`

	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID"`

	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	CourseEventsTopic  string `envconfig:"PUBSUB_COURSE_EVENTS_TOPIC" default:"course-events"`
	SessionEventsTopic string `envconfig:"PUBSUB_SESSION_EVENTS_TOPIC" default:"session-events"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@lmsadmin.local"`
	FrontendURL  string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	// Blob cleanup orchestrator settings
	CleanupQueueName           string `envconfig:"CLEANUP_QUEUE_NAME" default:"blob_cleanup_queue"`
	CleanupPollTimeoutSec      int    `envconfig:"CLEANUP_POLL_TIMEOUT_SEC" default:"30"`
	CleanupPollMaxMsg          int    `envconfig:"CLEANUP_POLL_MAX_MSG" default:"1"`
	CleanupMaxRetries          int    `envconfig:"CLEANUP_MAX_RETRIES" default:"5"`
	CleanupBackoffInitialSec   int    `envconfig:"CLEANUP_BACKOFF_INITIAL_SEC" default:"1"`
	CleanupBackoffMaxSec       int    `envconfig:"CLEANUP_BACKOFF_MAX_SEC" default:"60"`
	CleanupDeadLetterQueueName string `envconfig:"CLEANUP_DEAD_LETTER_QUEUE_NAME" default:"blob_cleanup_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PublicObjectBaseURL is the prefix for URLs handed out for uploaded objects.
func (c *Config) PublicObjectBaseURL() string {
	if c.S3PublicURL != "" {
		return c.S3PublicURL
	}
	return c.S3URL
}
