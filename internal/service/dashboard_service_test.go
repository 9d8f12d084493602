package service

import (
	"context"
	"testing"

	"lmsadmin/internal/model"
)

func TestComputeStats(t *testing.T) {
	users := []model.User{
		{ID: "1", Role: "student", Status: "active"},
		{ID: "2", Role: "student", Status: "inactive"},
		{ID: "3", Role: "instructor", Status: "active"},
	}
	courses := []model.Course{
		{ID: "a", Title: "A", Category: "Data", Status: "active", Price: 10, EnrollmentCount: 3, Rating: 4},
		{ID: "b", Title: "B", Category: "Data", Status: "draft", Price: 0, EnrollmentCount: 7},
		{ID: "c", Title: "C", Status: "active", Price: 20, EnrollmentCount: 3, Rating: 5},
	}

	st := computeStats(users, courses)
	if st.TotalUsers != 3 || st.ActiveUsers != 2 || st.UsersByRole["student"] != 2 {
		t.Fatalf("unexpected user stats %+v", st)
	}
	if st.TotalCourses != 3 || st.CoursesByStatus["active"] != 2 || st.CoursesByCategory["Data"] != 2 || st.CoursesByCategory["uncategorized"] != 1 {
		t.Fatalf("unexpected course stats %+v", st)
	}
	if st.TotalEnrollments != 13 || st.Revenue != 90 || st.AverageRating != 4.5 {
		t.Fatalf("unexpected totals %+v", st)
	}
	if len(st.TopCourses) != 3 || st.TopCourses[0].ID != "b" || st.TopCourses[1].ID != "a" || st.TopCourses[2].ID != "c" {
		t.Fatalf("top courses should be by enrollment, stable on ties: %+v", st.TopCourses)
	}
}

func TestDashboardStatsEmpty(t *testing.T) {
	r := newRepos()
	st, err := NewDashboardService(r.users, r.courses).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalUsers != 0 || st.TopCourses == nil {
		t.Fatalf("unexpected empty stats %+v", st)
	}
}
