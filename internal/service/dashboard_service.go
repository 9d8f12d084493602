package service

import (
	"cmp"
	"context"
	"slices"

	"lmsadmin/internal/model"
	"lmsadmin/internal/repository"
)

const topCoursesLimit = 5

type CourseSummary struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	EnrollmentCount int     `json:"enrollment_count"`
	Rating          float64 `json:"rating"`
	Revenue         float64 `json:"revenue"`
}

// DashboardStats are the figures behind the dashboard cards and charts.
type DashboardStats struct {
	TotalUsers        int             `json:"total_users"`
	ActiveUsers       int             `json:"active_users"`
	UsersByRole       map[string]int  `json:"users_by_role"`
	TotalCourses      int             `json:"total_courses"`
	CoursesByStatus   map[string]int  `json:"courses_by_status"`
	CoursesByCategory map[string]int  `json:"courses_by_category"`
	TotalEnrollments  int             `json:"total_enrollments"`
	Revenue           float64         `json:"revenue"`
	AverageRating     float64         `json:"average_rating"`
	TopCourses        []CourseSummary `json:"top_courses"`
}

type DashboardService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	users   repository.UserRepository
	courses repository.CourseRepository
}

func NewDashboardService(users repository.UserRepository, courses repository.CourseRepository) DashboardService {
	return &dashboardService{users: users, courses: courses}
}

func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(users, courses), nil
}

func computeStats(users []model.User, courses []model.Course) *DashboardStats {
	st := &DashboardStats{
		TotalUsers:        len(users),
		UsersByRole:       make(map[string]int),
		TotalCourses:      len(courses),
		CoursesByStatus:   make(map[string]int),
		CoursesByCategory: make(map[string]int),
		TopCourses:        []CourseSummary{},
	}
	for _, u := range users {
		if u.IsActive() {
			st.ActiveUsers++
		}
		st.UsersByRole[u.Role]++
	}

	var ratingSum float64
	var rated int
	summaries := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		st.CoursesByStatus[c.Status]++
		category := c.Category
		if category == "" {
			category = "uncategorized"
		}
		st.CoursesByCategory[category]++
		st.TotalEnrollments += c.EnrollmentCount

		revenue := c.Price * float64(c.EnrollmentCount)
		st.Revenue += revenue
		if c.Rating > 0 {
			ratingSum += c.Rating
			rated++
		}
		summaries = append(summaries, CourseSummary{
			ID:              c.ID,
			Title:           c.Title,
			EnrollmentCount: c.EnrollmentCount,
			Rating:          c.Rating,
			Revenue:         revenue,
		})
	}
	if rated > 0 {
		st.AverageRating = ratingSum / float64(rated)
	}

	slices.SortStableFunc(summaries, func(a, b CourseSummary) int {
		return cmp.Compare(b.EnrollmentCount, a.EnrollmentCount)
	})
	if len(summaries) > topCoursesLimit {
		summaries = summaries[:topCoursesLimit]
	}
	st.TopCourses = append(st.TopCourses, summaries...)
	return st
}
