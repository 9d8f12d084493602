package form

import (
	"fmt"
	"strings"

	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
)

// UserDraft holds the user form. Role starts at the default role.
type UserDraft struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,oneof=student instructor admin"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
	Status          string `json:"status" validate:"omitempty,oneof=active inactive"`
	CoursesEnrolled string `json:"courses_enrolled" validate:"omitempty,number"`
	PhotoURL        string `json:"photo_url" validate:"omitempty,url"`
}

func NewUserDraft() Draft {
	return &UserDraft{Role: model.DefaultUserRole}
}

func (d *UserDraft) Set(name string, value any) error {
	switch name {
	case "name":
		d.Name = text(value)
	case "email":
		d.Email = strings.ToLower(text(value))
	case "role":
		d.Role = strings.ToLower(text(value))
	case "phone":
		d.Phone = text(value)
	case "status":
		d.Status = strings.ToLower(text(value))
	case "courses_enrolled":
		d.CoursesEnrolled = text(value)
	case "photo_url":
		d.PhotoURL = text(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Validate checks required fields (name, email, role) before formats.
func (d *UserDraft) Validate() error {
	if err := requireAll(
		namedValue{"name", d.Name},
		namedValue{"email", d.Email},
		namedValue{"role", d.Role},
	); err != nil {
		return err
	}
	return checkFormats(d)
}

func (d *UserDraft) Payload() map[string]any {
	p := map[string]any{
		"name":             d.Name,
		"email":            d.Email,
		"role":             d.Role,
		"phone":            d.Phone,
		"courses_enrolled": int(listing.Number(d.CoursesEnrolled)),
		"photo_url":        d.PhotoURL,
	}
	if d.Status != "" {
		p["status"] = d.Status
	}
	return p
}

func (d *UserDraft) Values() map[string]any {
	return map[string]any{
		"name":             d.Name,
		"email":            d.Email,
		"role":             d.Role,
		"phone":            d.Phone,
		"status":           d.Status,
		"courses_enrolled": d.CoursesEnrolled,
		"photo_url":        d.PhotoURL,
	}
}

// UserValues maps a stored user to draft values for an edit form.
func UserValues(u *model.User) map[string]any {
	return map[string]any{
		"name":             u.Name,
		"email":            u.Email,
		"role":             u.Role,
		"phone":            u.Phone,
		"status":           u.Status,
		"courses_enrolled": u.CoursesEnrolled,
		"photo_url":        u.PhotoURL,
	}
}
