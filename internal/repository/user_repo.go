package repository

import (
	"context"
	"fmt"
	"strings"

	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
)

// UserRepository defines the interface for interacting with user data
type UserRepository interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	// GetUserByID returns nil, nil when the user does not exist
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, userID string, fields map[string]any) error
	UpdateUser(ctx context.Context, userID string, fields map[string]any) error
	DeleteUser(ctx context.Context, userID string) error

	// GetCredentialByEmail returns nil, nil when no password account uses email
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
	SaveCredential(ctx context.Context, cred *model.Credential) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	// UpdateCredentialEmail is a no-op for users without a password account
	UpdateCredentialEmail(ctx context.Context, userID, email string) error
	DeleteCredential(ctx context.Context, userID string) error
}

type userRepo struct {
	store DocumentStore
}

// NewUserRepo creates a new UserRepository
func NewUserRepo(store DocumentStore) UserRepository {
	return &userRepo{store: store}
}

func (r *userRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	docs, err := r.store.List(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(docs))
	for i, d := range docs {
		users[i] = NormalizeUser(d)
	}
	return users, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	doc, err := r.store.GetByID(ctx, CollectionUsers, userID)
	if err != nil || doc == nil {
		return nil, err
	}
	u := NormalizeUser(*doc)
	return &u, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	docs, err := queryAliases(ctx, r.store, CollectionUsers, UserFieldAliases("email"), normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	u := NormalizeUser(docs[0])
	return &u, nil
}

func (r *userRepo) CreateUser(ctx context.Context, userID string, fields map[string]any) error {
	if email, ok := fields["email"]; ok {
		fields["email"] = normalizeEmail(listing.Text(email))
	}
	if err := r.store.CreateWithID(ctx, CollectionUsers, userID, fields); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) UpdateUser(ctx context.Context, userID string, fields map[string]any) error {
	if email, ok := fields["email"]; ok {
		fields["email"] = normalizeEmail(listing.Text(email))
	}
	if err := r.store.Update(ctx, CollectionUsers, userID, fields); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *userRepo) DeleteUser(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, CollectionUsers, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *userRepo) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	docs, err := r.store.Query(ctx, CollectionCredentials, "email", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	d := docs[0]
	return &model.Credential{
		UserID:       d.ID,
		Email:        listing.Text(d.Data["email"]),
		PasswordHash: listing.Text(d.Data["password_hash"]),
		Provider:     listing.Text(d.Data["provider"]),
	}, nil
}

func (r *userRepo) SaveCredential(ctx context.Context, cred *model.Credential) error {
	fields := map[string]any{
		"email":         normalizeEmail(cred.Email),
		"password_hash": cred.PasswordHash,
		"provider":      cred.Provider,
	}
	if err := r.store.CreateWithID(ctx, CollectionCredentials, cred.UserID, fields); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	if err := r.store.Update(ctx, CollectionCredentials, userID, map[string]any{"password_hash": hash}); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

func (r *userRepo) UpdateCredentialEmail(ctx context.Context, userID, email string) error {
	err := r.store.Update(ctx, CollectionCredentials, userID, map[string]any{"email": normalizeEmail(email)})
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

func (r *userRepo) DeleteCredential(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, CollectionCredentials, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
