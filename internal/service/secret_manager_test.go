package service

import (
	"context"
	"errors"
	"testing"

	"lmsadmin/internal/config"
)

type fakeSecrets struct {
	values map[string]string
}

func (f *fakeSecrets) AccessSecret(_ context.Context, resource string) (string, error) {
	v, ok := f.values[resource]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func (f *fakeSecrets) Close() error { return nil }

func TestResolveJWTSecret(t *testing.T) {
	ctx := context.Background()
	sm := &fakeSecrets{values: map[string]string{"projects/p/secrets/jwt/versions/latest": "from-sm\n"}}

	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{"secret manager wins", config.Config{JWTSecret: "env", JWTSecretResource: "projects/p/secrets/jwt/versions/latest"}, "from-sm", false},
		{"env secret", config.Config{JWTSecret: "env", Environment: "production"}, "env", false},
		{"development fallback", config.Config{Environment: "development"}, developmentJWTSecret, false},
		{"production requires a secret", config.Config{Environment: "production"}, "", true},
		{"missing resource", config.Config{JWTSecretResource: "projects/p/secrets/other/versions/1"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveJWTSecret(ctx, &tt.cfg, sm, nop)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
