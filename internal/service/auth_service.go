package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/listing"
	"lmsadmin/internal/mail"
	"lmsadmin/internal/model"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/idtoken"
)

const (
	minPasswordLength = 6

	SessionSignedIn       = "signed-in"
	SessionSignedOut      = "signed-out"
	SessionProfileUpdated = "profile-updated"
)

// SessionEvent is delivered to OnSessionChange subscribers.
type SessionEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// ProfileUpdate holds the profile fields a user may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	PhotoURL *string
}

// AuthResult is a signed-in user and the session that was opened.
type AuthResult struct {
	User    *model.User
	Session model.Session
}

// IDTokenValidator verifies a federated ID token for the given audience.
type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignInFederated(ctx context.Context, idToken string) (*AuthResult, error)
	SignOut(ctx context.Context, sessionID string) error
	// CurrentUser returns the user of a live session, or nil when the session
	// has ended.
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	// OnSessionChange registers fn for session events and returns a function
	// that removes it.
	OnSessionChange(fn func(SessionEvent)) func()
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	// Authenticate verifies a bearer token and its live session.
	Authenticate(ctx context.Context, token string) (*session.Claims, error)
}

type AuthSettings struct {
	SessionTTL     time.Duration
	GoogleClientID string
	ResetURL       string
	// MaxFailedSignIns within FailureWindow locks further password sign-ins
	// for the email until the window passes.
	MaxFailedSignIns int
	FailureWindow    time.Duration
}

type authService struct {
	users    repository.UserRepository
	sessions session.Store
	tokens   *session.TokenManager
	hasher   *session.PasswordHasher
	mailer   mail.Mailer
	verify   IDTokenValidator
	validate *validator.Validate
	settings AuthSettings
	logger   zerolog.Logger
	now      func() time.Time

	subMu       sync.Mutex
	subscribers map[int]func(SessionEvent)
	nextSub     int

	failMu   sync.Mutex
	failures map[string][]time.Time
}

func NewAuthService(
	users repository.UserRepository,
	sessions session.Store,
	tokens *session.TokenManager,
	mailer mail.Mailer,
	verify IDTokenValidator,
	settings AuthSettings,
	logger zerolog.Logger,
) AuthService {
	if verify == nil {
		verify = idtoken.Validate
	}
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = 24 * time.Hour
	}
	if settings.MaxFailedSignIns <= 0 {
		settings.MaxFailedSignIns = 5
	}
	if settings.FailureWindow <= 0 {
		settings.FailureWindow = 15 * time.Minute
	}
	return &authService{
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		hasher:      session.NewPasswordHasher(),
		mailer:      mailer,
		verify:      verify,
		validate:    validator.New(),
		settings:    settings,
		logger:      logger.With().Str("service", "AuthService").Logger(),
		now:         time.Now,
		subscribers: make(map[int]func(SessionEvent)),
		failures:    make(map[string][]time.Time),
	}
}

func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, authErr(CodeInvalidEmail)
	}
	if len(in.Password) < minPasswordLength {
		return nil, authErr(CodeWeakPassword)
	}

	if cred, err := s.users.GetCredentialByEmail(ctx, email); err != nil {
		return nil, err
	} else if cred != nil {
		return nil, authErr(CodeEmailAlreadyInUse)
	}
	if u, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, authErr(CodeEmailAlreadyInUse)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	userID := uuid.NewString()
	ctx = identity.WithUserID(ctx, userID)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	err = s.users.CreateUser(ctx, userID, map[string]any{
		"name":             name,
		"email":            email,
		"phone":            strings.TrimSpace(in.Phone),
		"role":             model.DefaultUserRole,
		"status":           model.UserStatusActive,
		"provider":         model.ProviderPassword,
		"courses_enrolled": 0,
	})
	if err != nil {
		return nil, err
	}
	err = s.users.SaveCredential(ctx, &model.Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
		Provider:     model.ProviderPassword,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Msg("User signed up")
	return s.openSession(ctx, userID)
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, authErr(CodeInvalidEmail)
	}
	if s.lockedOut(email) {
		return nil, authErr(CodeTooManyRequests)
	}

	cred, err := s.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, authErr(CodeUserNotFound)
	}
	if err := s.hasher.Compare(cred.PasswordHash, password); err != nil {
		s.recordFailure(email)
		return nil, authErr(CodeWrongPassword)
	}
	s.clearFailures(email)

	return s.openSession(identity.WithUserID(ctx, cred.UserID), cred.UserID)
}

func (s *authService) SignInFederated(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.settings.GoogleClientID == "" {
		return nil, authErr(CodeOperationNotAllowed)
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, authErr(CodePopupClosedByUser)
	}
	payload, err := s.verify(ctx, idToken, s.settings.GoogleClientID)
	if err != nil {
		return nil, &AuthError{Code: CodeInvalidCredential, Err: err}
	}

	email := strings.ToLower(listing.Text(payload.Claims["email"]))
	if email == "" {
		return nil, authErr(CodeInvalidEmail)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, authErr(CodeInvalidCredential)
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return s.openSession(identity.WithUserID(ctx, u.ID), u.ID)
	}

	userID := uuid.NewString()
	ctx = identity.WithUserID(ctx, userID)
	err = s.users.CreateUser(ctx, userID, map[string]any{
		"name":             listing.Text(payload.Claims["name"]),
		"email":            email,
		"role":             model.DefaultUserRole,
		"status":           model.UserStatusActive,
		"provider":         model.ProviderGoogle,
		"photo_url":        listing.Text(payload.Claims["picture"]),
		"courses_enrolled": 0,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Msg("User signed up with Google")
	return s.openSession(ctx, userID)
}

// openSession checks the account is enabled, records a new session and
// issues its token.
func (s *authService) openSession(ctx context.Context, userID string) (*AuthResult, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, authErr(CodeUserNotFound)
	}
	if !u.IsActive() {
		return nil, authErr(CodeUserDisabled)
	}

	sessionID := uuid.NewString()
	if err := s.sessions.SaveSession(ctx, sessionID, userID, s.settings.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	token, exp, err := s.tokens.Issue(userID, u.Email, sessionID, s.settings.SessionTTL)
	if err != nil {
		return nil, err
	}

	s.emit(SessionEvent{Type: SessionSignedIn, UserID: userID, SessionID: sessionID})
	return &AuthResult{
		User:    u,
		Session: model.Session{ID: sessionID, UserID: userID, Token: token, ExpiresAt: exp},
	}, nil
}

func (s *authService) SignOut(ctx context.Context, sessionID string) error {
	userID, err := s.sessions.SessionUser(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if userID != "" {
		s.emit(SessionEvent{Type: SessionSignedOut, UserID: userID, SessionID: sessionID})
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	userID, err := s.sessions.SessionUser(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, userID)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*session.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, &AuthError{Code: CodeSessionExpired, Err: err}
	}
	userID, err := s.sessions.SessionUser(ctx, claims.ID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, &AuthError{Code: CodeSessionExpired, Err: err}
	}
	if err != nil {
		return nil, err
	}
	if userID != claims.Subject {
		return nil, authErr(CodeSessionExpired)
	}
	return claims, nil
}

func (s *authService) OnSessionChange(fn func(SessionEvent)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *authService) emit(ev SessionEvent) {
	ev.At = s.now()
	s.subMu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Phone != nil {
		fields["phone"] = strings.TrimSpace(*update.Phone)
	}
	if update.PhotoURL != nil {
		fields["photo_url"] = strings.TrimSpace(*update.PhotoURL)
	}
	if len(fields) > 0 {
		if err := s.users.UpdateUser(ctx, userID, fields); err != nil {
			return nil, err
		}
		sessionID, _ := identity.SessionID(ctx)
		s.emit(SessionEvent{Type: SessionProfileUpdated, UserID: userID, SessionID: sessionID})
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return authErr(CodeInvalidEmail)
	}
	cred, err := s.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		return err
	}
	if cred == nil {
		return authErr(CodeUserNotFound)
	}

	token := uuid.NewString()
	if err := s.sessions.SaveResetToken(ctx, token, cred.UserID); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	var name string
	if u, err := s.users.GetUserByID(ctx, cred.UserID); err == nil && u != nil {
		name = u.Name
	}
	link := s.settings.ResetURL + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, email, name, link); err != nil {
		return &AuthError{Code: CodeNetworkRequestFailed, Err: err}
	}
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return authErr(CodeWeakPassword)
	}
	userID, err := s.sessions.ConsumeResetToken(ctx, token)
	if errors.Is(err, session.ErrResetTokenNotFound) {
		return authErr(CodeInvalidActionCode)
	}
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(identity.WithUserID(ctx, userID), userID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to revoke sessions after password reset")
	}
	if u, err := s.users.GetUserByID(ctx, userID); err == nil && u != nil {
		s.clearFailures(u.Email)
	}
	return nil
}

func (s *authService) lockedOut(email string) bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	recent := s.recentLocked(email)
	return len(recent) >= s.settings.MaxFailedSignIns
}

func (s *authService) recordFailure(email string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[email] = append(s.recentLocked(email), s.now())
}

func (s *authService) clearFailures(email string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	delete(s.failures, email)
}

func (s *authService) recentLocked(email string) []time.Time {
	cutoff := s.now().Add(-s.settings.FailureWindow)
	kept := s.failures[email][:0]
	for _, t := range s.failures[email] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, email)
		return nil
	}
	s.failures[email] = kept
	return kept
}
