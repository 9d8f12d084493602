package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*session.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &session.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ID: "s1"}}, nil
}

func TestAuthMiddleware(t *testing.T) {
	var gotUser, gotSession string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = identity.UserID(r.Context())
		gotSession, _ = identity.SessionID(r.Context())
	})
	h := AuthMiddleware(stubAuth{}, zerolog.Nop())(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}
	if gotUser != "u1" || gotSession != "s1" {
		t.Fatalf("identity not propagated: %q %q", gotUser, gotSession)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := LoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/x?q=1", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, `"uri":"/courses/x?q=1"`) {
		t.Fatalf("unexpected log line %s", out)
	}
}
