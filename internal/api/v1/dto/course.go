package dto

import (
	"time"

	"lmsadmin/internal/model"
)

// CourseResponseDTO is returned in API responses for courses
type CourseResponseDTO struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Category        string               `json:"category"`
	Level           string               `json:"level"`
	Duration        float64              `json:"duration"`
	Lessons         int                  `json:"lessons"`
	Price           float64              `json:"price"`
	OriginalPrice   float64              `json:"original_price"`
	Currency        string               `json:"currency"`
	Rating          float64              `json:"rating"`
	EnrollmentCount int                  `json:"enrollment_count"`
	ThumbnailURL    string               `json:"thumbnail_url"`
	PreviewLink     string               `json:"preview_link"`
	Tags            []string             `json:"tags"`
	Requirements    []string             `json:"requirements"`
	Features        model.CourseFeatures `json:"features"`
	Status          string               `json:"status"`
	InstructorID    string               `json:"instructor_id"`
	InstructorName  string               `json:"instructor_name"`
	// CanEdit tells the console whether to show edit and delete actions. It
	// is not an access check.
	CanEdit   bool      `json:"can_edit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCourseResponse(c *model.Course, callerID string) CourseResponseDTO {
	return CourseResponseDTO{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Level:           c.Level,
		Duration:        c.Duration,
		Lessons:         c.Lessons,
		Price:           c.Price,
		OriginalPrice:   c.OriginalPrice,
		Currency:        c.Currency,
		Rating:          c.Rating,
		EnrollmentCount: c.EnrollmentCount,
		ThumbnailURL:    c.ThumbnailURL,
		PreviewLink:     c.PreviewLink,
		Tags:            c.Tags,
		Requirements:    c.Requirements,
		Features:        c.Features,
		Status:          c.Status,
		InstructorID:    c.InstructorID,
		InstructorName:  c.InstructorName,
		CanEdit:         callerID != "" && c.InstructorID == callerID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// CreatedDTO is returned after a record is created
type CreatedDTO struct {
	ID string `json:"id"`
}
