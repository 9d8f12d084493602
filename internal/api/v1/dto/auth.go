package dto

import "time"

type SignUpDTO struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type SignInDTO struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type GoogleSignInDTO struct {
	IDToken string `json:"id_token"`
}

type PasswordResetDTO struct {
	Email string `json:"email" validate:"required"`
}

type PasswordResetConfirmDTO struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponseDTO is returned after a successful sign-in or sign-up
type SessionResponseDTO struct {
	Token     string          `json:"token"`
	SessionID string          `json:"session_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      UserResponseDTO `json:"user"`
}
