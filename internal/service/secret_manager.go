package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lmsadmin/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/rs/zerolog"
)

// developmentJWTSecret signs tokens when ENV=development and no secret is set.
const developmentJWTSecret = "lmsadmin-development-secret"

var ErrMissingJWTSecret = errors.New("JWT_SECRET or JWT_SECRET_RESOURCE must be set")

type SecretManagerService interface {
	// AccessSecret reads a secret version, e.g.
	// projects/p/secrets/jwt-signing-key/versions/latest.
	AccessSecret(ctx context.Context, resource string) (string, error)
	Close() error
}

type secretManagerService struct {
	client *secretmanager.Client
}

func NewSecretManagerService(ctx context.Context) (SecretManagerService, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client}, nil
}

func (s *secretManagerService) AccessSecret(ctx context.Context, resource string) (string, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resource,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// ResolveJWTSecret picks the session signing secret. A configured Secret
// Manager resource wins over JWT_SECRET; sm is only used in that case.
func ResolveJWTSecret(ctx context.Context, cfg *config.Config, sm SecretManagerService, logger zerolog.Logger) (string, error) {
	if cfg.JWTSecretResource != "" {
		if sm == nil {
			return "", fmt.Errorf("secret manager is required to read %s", cfg.JWTSecretResource)
		}
		secret, err := sm.AccessSecret(ctx, cfg.JWTSecretResource)
		if err != nil {
			return "", err
		}
		secret = strings.TrimSpace(secret)
		if secret == "" {
			return "", fmt.Errorf("secret %s is empty", cfg.JWTSecretResource)
		}
		return secret, nil
	}
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if cfg.Environment == "development" {
		logger.Warn().Msg("JWT_SECRET not set, using the development signing secret")
		return developmentJWTSecret, nil
	}
	return "", ErrMissingJWTSecret
}
