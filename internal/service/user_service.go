package service

import (
	"context"
	"fmt"
	"strings"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/session"
	"lmsadmin/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// UserListQuery selects and shapes a page of users.
type UserListQuery struct {
	Term     string
	Sort     *listing.Sort
	Page     int
	PageSize int
	Role     string
	Status   string
}

type UserService interface {
	ListUsers(ctx context.Context, q UserListQuery) (listing.Page[model.User], error)
	// GetUser returns ErrUserNotFound for unknown ids
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// CreateUser adds a user record without a password credential
	CreateUser(ctx context.Context, payload map[string]any) (string, error)
	UpdateUser(ctx context.Context, userID string, payload map[string]any) error
	// SetStatus enables or disables an account. Disabling ends its sessions.
	SetStatus(ctx context.Context, userID, status string) (*model.User, error)
	// DeleteUser treats an already deleted user as success
	DeleteUser(ctx context.Context, userID string) error
	UploadAvatar(ctx context.Context, userID string, data []byte, contentType string) (*model.User, error)
	// ExportUsers renders the filtered, sorted users as an xlsx workbook
	ExportUsers(ctx context.Context, q UserListQuery) ([]byte, error)
}

type userService struct {
	users    repository.UserRepository
	sessions session.Store
	blobs    storage.BlobStore
	cleanup  blobCleanup
	logger   zerolog.Logger
}

func NewUserService(
	users repository.UserRepository,
	sessions session.Store,
	blobs storage.BlobStore,
	queue CleanupQueue,
	cleanupQueueName string,
	logger zerolog.Logger,
) UserService {
	l := logger.With().Str("service", "UserService").Logger()
	return &userService{
		users:    users,
		sessions: sessions,
		blobs:    blobs,
		cleanup:  blobCleanup{queue: queue, name: cleanupQueueName, logger: l},
		logger:   l,
	}
}

func (s *userService) ListUsers(ctx context.Context, q UserListQuery) (listing.Page[model.User], error) {
	users, err := s.filtered(ctx, q)
	if err != nil {
		return listing.Page[model.User]{}, err
	}
	return listing.Paginate(users, q.Page, q.PageSize), nil
}

func (s *userService) filtered(ctx context.Context, q UserListQuery) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if q.Role != "" || q.Status != "" {
		kept := users[:0:0]
		for _, u := range users {
			if q.Role != "" && !strings.EqualFold(u.Role, q.Role) {
				continue
			}
			if q.Status != "" && !strings.EqualFold(u.Status, q.Status) {
				continue
			}
			kept = append(kept, u)
		}
		users = kept
	}
	return listing.Derive(users, q.Term, q.Sort, UserSchema), nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) CreateUser(ctx context.Context, payload map[string]any) (string, error) {
	if err := s.checkEmailFree(ctx, listing.Text(payload["email"]), ""); err != nil {
		return "", err
	}
	if _, ok := payload["status"]; !ok {
		payload["status"] = model.UserStatusActive
	}

	userID := uuid.NewString()
	if err := s.users.CreateUser(ctx, userID, payload); err != nil {
		return "", err
	}
	actor, _ := identity.UserID(ctx)
	s.logger.Info().Str("user_id", userID).Str("actor", actor).Msg("User created")
	return userID, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, payload map[string]any) error {
	email, emailChanged := payload["email"]
	if emailChanged {
		if err := s.checkEmailFree(ctx, listing.Text(email), userID); err != nil {
			return err
		}
	}
	if err := s.users.UpdateUser(ctx, userID, payload); err != nil {
		return err
	}
	if emailChanged {
		// Sign-in resolves the password account by email.
		if err := s.users.UpdateCredentialEmail(ctx, userID, listing.Text(email)); err != nil {
			return err
		}
	}
	if listing.Text(payload["status"]) == model.UserStatusInactive {
		s.revoke(ctx, userID)
	}
	return nil
}

// checkEmailFree rejects an email held by another user's profile or password
// account. self is the user allowed to keep it.
func (s *userService) checkEmailFree(ctx context.Context, email, self string) error {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return authErr(CodeEmailAlreadyInUse)
	}
	cred, err := s.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		return err
	}
	if cred != nil && cred.UserID != self {
		return authErr(CodeEmailAlreadyInUse)
	}
	return nil
}

func (s *userService) SetStatus(ctx context.Context, userID, status string) (*model.User, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != model.UserStatusActive && status != model.UserStatusInactive {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]any{"status": status}); err != nil {
		return nil, err
	}
	if status == model.UserStatusInactive {
		s.revoke(ctx, userID)
	}
	return s.GetUser(ctx, userID)
}

func (s *userService) revoke(ctx context.Context, userID string) {
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to revoke user sessions")
	}
}

func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	err := s.users.DeleteUser(ctx, userID)
	if repository.IsNotFound(err) {
		s.logger.Warn().Str("user_id", userID).Msg("User already deleted")
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.users.DeleteCredential(ctx, userID); err != nil && !repository.IsNotFound(err) {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete credential")
	}
	s.revoke(ctx, userID)
	s.cleanup.schedule(ctx, userID, "user deleted", storage.AvatarPrefix(userID))
	return nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID string, data []byte, contentType string) (*model.User, error) {
	ext, err := storage.CheckImage(contentType, len(data))
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	url, err := s.blobs.Upload(ctx, storage.AvatarKey(userID, ext), data, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]any{"photo_url": url}); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

var exportColumns = []any{"ID", "Name", "Email", "Phone", "Role", "Status", "Courses Enrolled", "Provider", "Joined"}

const exportSheet = "Users"

func (s *userService) ExportUsers(ctx context.Context, q UserListQuery) ([]byte, error) {
	users, err := s.filtered(ctx, q)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close workbook")
		}
	}()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		joined := ""
		if !u.JoinedAt.IsZero() {
			joined = u.JoinedAt.UTC().Format("2006-01-02")
		}
		row := []any{u.ID, u.Name, u.Email, u.Phone, u.Role, u.Status, u.CoursesEnrolled, u.Provider, joined}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	s.logger.Info().Int("rows", len(users)).Msg("Users exported")
	return buf.Bytes(), nil
}
