package dto

import (
	"time"

	"lmsadmin/internal/model"
)

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	CoursesEnrolled int       `json:"courses_enrolled"`
	PhotoURL        string    `json:"photo_url"`
	Provider        string    `json:"provider"`
	JoinedAt        time.Time `json:"joined_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewUserResponse(u *model.User) UserResponseDTO {
	return UserResponseDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		Status:          u.Status,
		CoursesEnrolled: u.CoursesEnrolled,
		PhotoURL:        u.PhotoURL,
		Provider:        u.Provider,
		JoinedAt:        u.JoinedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// ProfileUpdateDTO is the body of PUT /users/me. Avatar is accepted as an
// older name of photo_url.
type ProfileUpdateDTO struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	PhotoURL *string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Avatar   *string `json:"avatar,omitempty" validate:"omitempty,url"`
}

type UserStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}
