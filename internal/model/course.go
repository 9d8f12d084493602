package model

import "time"

// CourseStatusActive is the status assumed for records stored without one.
const CourseStatusActive = "active"

// CourseFeatures are the per-course feature flags shown on the course page.
type CourseFeatures struct {
	DownloadableContent bool `json:"downloadable_content"`
	MobileAccess        bool `json:"mobile_access"`
	Quizzes             bool `json:"quizzes"`
	Certificate         bool `json:"certificate"`
	Assignments         bool `json:"assignments"`
	LifetimeAccess      bool `json:"lifetime_access"`
}

// Course is the canonical course shape every stored variant is normalized to.
type Course struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Level           string         `json:"level"`
	Duration        float64        `json:"duration"`
	Lessons         int            `json:"lessons"`
	Price           float64        `json:"price"`
	OriginalPrice   float64        `json:"original_price"`
	Currency        string         `json:"currency"`
	Rating          float64        `json:"rating"`
	EnrollmentCount int            `json:"enrollment_count"`
	ThumbnailURL    string         `json:"thumbnail_url"`
	PreviewLink     string         `json:"preview_link"`
	Tags            []string       `json:"tags"`
	Requirements    []string       `json:"requirements"`
	Features        CourseFeatures `json:"features"`
	Status          string         `json:"status"`
	InstructorID    string         `json:"instructor_id"`
	InstructorName  string         `json:"instructor_name"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
