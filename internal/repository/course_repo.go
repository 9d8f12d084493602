package repository

import (
	"context"
	"fmt"

	"lmsadmin/internal/model"
)

// CourseRepository defines the interface for interacting with course data
type CourseRepository interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	// GetCourseByID returns nil, nil when the course does not exist
	GetCourseByID(ctx context.Context, courseID string) (*model.Course, error)
	// QueryCourses matches a canonical field against every stored name it has had
	QueryCourses(ctx context.Context, field, value string) ([]model.Course, error)
	CreateCourse(ctx context.Context, fields map[string]any) (string, error)
	UpdateCourse(ctx context.Context, courseID string, fields map[string]any) error
	DeleteCourse(ctx context.Context, courseID string) error
}

type courseRepo struct {
	store DocumentStore
}

// NewCourseRepo creates a new CourseRepository
func NewCourseRepo(store DocumentStore) CourseRepository {
	return &courseRepo{store: store}
}

func (r *courseRepo) ListCourses(ctx context.Context) ([]model.Course, error) {
	docs, err := r.store.List(ctx, CollectionCourses)
	if err != nil {
		return nil, err
	}
	courses := make([]model.Course, len(docs))
	for i, d := range docs {
		courses[i] = NormalizeCourse(d)
	}
	return courses, nil
}

func (r *courseRepo) GetCourseByID(ctx context.Context, courseID string) (*model.Course, error) {
	doc, err := r.store.GetByID(ctx, CollectionCourses, courseID)
	if err != nil || doc == nil {
		return nil, err
	}
	c := NormalizeCourse(*doc)
	return &c, nil
}

func (r *courseRepo) QueryCourses(ctx context.Context, field, value string) ([]model.Course, error) {
	docs, err := queryAliases(ctx, r.store, CollectionCourses, CourseFieldAliases(field), value)
	if err != nil {
		return nil, err
	}
	courses := make([]model.Course, len(docs))
	for i, d := range docs {
		courses[i] = NormalizeCourse(d)
	}
	return courses, nil
}

func (r *courseRepo) CreateCourse(ctx context.Context, fields map[string]any) (string, error) {
	if _, ok := fields["status"]; !ok {
		fields["status"] = model.CourseStatusActive
	}
	id, err := r.store.Create(ctx, CollectionCourses, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create course: %w", err)
	}
	return id, nil
}

func (r *courseRepo) UpdateCourse(ctx context.Context, courseID string, fields map[string]any) error {
	if err := r.store.Update(ctx, CollectionCourses, courseID, fields); err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

func (r *courseRepo) DeleteCourse(ctx context.Context, courseID string) error {
	if err := r.store.Delete(ctx, CollectionCourses, courseID); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// queryAliases runs one equality query per stored field name and merges the
// results in store order without duplicates.
func queryAliases(ctx context.Context, store DocumentStore, collection string, fields []string, value string) ([]Document, error) {
	seen := make(map[string]bool)
	var merged []Document
	for _, f := range fields {
		docs, err := store.Query(ctx, collection, f, value)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if !seen[d.ID] {
				seen[d.ID] = true
				merged = append(merged, d)
			}
		}
	}
	sortDocuments(merged)
	return merged, nil
}
