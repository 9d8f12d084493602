package repository

import (
	"math"
	"strings"
	"time"

	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
)

// Stored documents carry one of several field-name generations. Aliases are
// listed canonical first. A canonical key that is set wins even when empty,
// since writes only use canonical names and an empty value means cleared.
// Otherwise the first non-empty alias wins.
var courseAliases = map[string][]string{
	"title":            {"title", "course-title", "course_title", "courseTitle"},
	"description":      {"description", "course-description", "course_description", "shortDescription"},
	"category":         {"category", "course-category", "course_category"},
	"level":            {"level", "course-level", "course_level"},
	"duration":         {"duration", "course-duration", "course_duration", "totalDuration"},
	"lessons":          {"lessons", "course-lessons", "course_lessons", "totalLessons"},
	"price":            {"price", "course-price", "course_price"},
	"original_price":   {"original_price", "originalPrice"},
	"currency":         {"currency"},
	"rating":           {"rating", "averageRating"},
	"enrollment_count": {"enrollment_count", "enrollmentCount"},
	"thumbnail_url":    {"thumbnail_url", "course-thumbnailUrl", "thumbnailUrl", "thumbnail"},
	"preview_link":     {"preview_link", "preview-link", "previewLink"},
	"tags":             {"tags"},
	"requirements":     {"requirements"},
	"status":           {"status"},
	"instructor_id":    {"instructor_id", "instructorId"},
	"instructor_name":  {"instructor_name", "instructorName"},
	"created_at":       {"created_at", "createdAt", "createdDate"},
	"updated_at":       {"updated_at", "updatedAt"},
}

var userAliases = map[string][]string{
	"name":             {"name", "displayName"},
	"email":            {"email"},
	"phone":            {"phone"},
	"role":             {"role"},
	"status":           {"status"},
	"courses_enrolled": {"courses_enrolled", "coursesEnrolled", "enrolledCourses"},
	"photo_url":        {"photo_url", "photoURL", "avatar"},
	"provider":         {"provider"},
	"joined_at":        {"joined_at", "joinedAt", "createdAt", "created_at"},
	"updated_at":       {"updated_at", "updatedAt"},
}

var featureAliases = []struct {
	set  func(*model.CourseFeatures, bool)
	keys []string
}{
	{func(f *model.CourseFeatures, v bool) { f.DownloadableContent = v }, []string{"downloadable_content", "downloadableContent"}},
	{func(f *model.CourseFeatures, v bool) { f.MobileAccess = v }, []string{"mobile_access", "mobileAccess"}},
	{func(f *model.CourseFeatures, v bool) { f.Quizzes = v }, []string{"quizzes"}},
	{func(f *model.CourseFeatures, v bool) { f.Certificate = v }, []string{"certificate"}},
	{func(f *model.CourseFeatures, v bool) { f.Assignments = v }, []string{"assignments"}},
	{func(f *model.CourseFeatures, v bool) { f.LifetimeAccess = v }, []string{"lifetime_access", "lifetimeAccess"}},
}

// CourseFieldAliases returns every stored name of a canonical course field,
// or just the name itself when it has no aliases.
func CourseFieldAliases(field string) []string {
	if a, ok := courseAliases[field]; ok {
		return a
	}
	return []string{field}
}

func UserFieldAliases(field string) []string {
	if a, ok := userAliases[field]; ok {
		return a
	}
	return []string{field}
}

// NormalizeCourse converts any stored course variant to the canonical shape.
func NormalizeCourse(doc Document) model.Course {
	get := func(field string) any { return pick(doc.Data, courseAliases[field]) }

	c := model.Course{
		ID:              doc.ID,
		Title:           strings.TrimSpace(listing.Text(get("title"))),
		Description:     listing.Text(get("description")),
		Category:        listing.Text(get("category")),
		Level:           listing.Text(get("level")),
		Duration:        listing.Number(get("duration")),
		Lessons:         count(get("lessons")),
		Price:           listing.Number(get("price")),
		OriginalPrice:   listing.Number(get("original_price")),
		Currency:        listing.Text(get("currency")),
		Rating:          listing.Number(get("rating")),
		EnrollmentCount: count(get("enrollment_count")),
		ThumbnailURL:    listing.Text(get("thumbnail_url")),
		PreviewLink:     listing.Text(get("preview_link")),
		Tags:            stringList(get("tags")),
		Requirements:    stringList(get("requirements")),
		Features:        features(doc.Data),
		Status:          listing.Text(get("status")),
		InstructorID:    listing.Text(get("instructor_id")),
		InstructorName:  listing.Text(get("instructor_name")),
		CreatedAt:       instant(get("created_at"), doc.CreatedAt),
		UpdatedAt:       instant(get("updated_at"), doc.UpdatedAt),
	}
	if c.Status == "" {
		c.Status = model.CourseStatusActive
	}
	return c
}

// NormalizeUser converts any stored user variant to the canonical shape. A
// missing status is derived from the legacy isActive flag.
func NormalizeUser(doc Document) model.User {
	get := func(field string) any { return pick(doc.Data, userAliases[field]) }

	u := model.User{
		ID:              doc.ID,
		Name:            listing.Text(get("name")),
		Email:           listing.Text(get("email")),
		Phone:           listing.Text(get("phone")),
		Role:            strings.ToLower(listing.Text(get("role"))),
		Status:          listing.Text(get("status")),
		CoursesEnrolled: count(get("courses_enrolled")),
		PhotoURL:        listing.Text(get("photo_url")),
		Provider:        listing.Text(get("provider")),
		JoinedAt:        instant(get("joined_at"), doc.CreatedAt),
		UpdatedAt:       instant(get("updated_at"), doc.UpdatedAt),
	}
	if u.Role == "" {
		u.Role = model.DefaultUserRole
	}
	if u.Provider == "" {
		u.Provider = model.ProviderPassword
	}
	if u.Status == "" {
		u.Status = model.UserStatusActive
		if active, ok := doc.Data["isActive"].(bool); ok && !active {
			u.Status = model.UserStatusInactive
		}
	}
	return u
}

func pick(data map[string]any, keys []string) any {
	if len(keys) == 0 {
		return nil
	}
	if v, ok := data[keys[0]]; ok && v != nil {
		return v
	}
	for _, k := range keys[1:] {
		if v, ok := data[k]; ok && present(v) {
			return v
		}
	}
	return nil
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// count reads counters that older documents stored as lists of items.
func count(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	}
	n := listing.Number(v)
	if n < 0 {
		return 0
	}
	return int(math.Round(n))
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(listing.Text(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func features(data map[string]any) model.CourseFeatures {
	var f model.CourseFeatures
	nested, _ := data["features"].(map[string]any)
	for _, fa := range featureAliases {
		for _, k := range fa.keys {
			v, ok := nested[k]
			if !ok {
				v, ok = data[k]
			}
			if b, isBool := v.(bool); ok && isBool {
				fa.set(&f, b)
				break
			}
		}
	}
	return f
}

func instant(v any, fallback time.Time) time.Time {
	sec := listing.EpochSeconds(v)
	if sec == 0 {
		return fallback
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
