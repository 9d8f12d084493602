package service

import (
	"context"
	"strings"
	"time"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
	"lmsadmin/internal/pubsub"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/storage"

	"github.com/rs/zerolog"
)

// CourseListQuery selects and shapes a page of courses.
type CourseListQuery struct {
	Term         string
	Sort         *listing.Sort
	Page         int
	PageSize     int
	InstructorID string
	Category     string
}

// CourseService defines the interface for course operations
type CourseService interface {
	ListCourses(ctx context.Context, q CourseListQuery) (listing.Page[model.Course], error)
	// GetCourse returns ErrCourseNotFound for unknown ids
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	// CreateCourse stores a new course owned by the caller and returns its id
	CreateCourse(ctx context.Context, payload map[string]any) (string, error)
	UpdateCourse(ctx context.Context, courseID string, payload map[string]any) error
	// DeleteCourse treats an already deleted course as success
	DeleteCourse(ctx context.Context, courseID string) error
	SetThumbnail(ctx context.Context, courseID string, data []byte, contentType string) (*model.Course, error)
}

type courseService struct {
	courses repository.CourseRepository
	users   repository.UserRepository
	blobs   storage.BlobStore
	cleanup blobCleanup
	events  eventSink
	logger  zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courses repository.CourseRepository,
	users repository.UserRepository,
	blobs storage.BlobStore,
	queue CleanupQueue,
	cleanupQueueName string,
	publisher pubsub.Publisher,
	eventsTopic string,
	logger zerolog.Logger,
) CourseService {
	l := logger.With().Str("service", "CourseService").Logger()
	return &courseService{
		courses: courses,
		users:   users,
		blobs:   blobs,
		cleanup: blobCleanup{queue: queue, name: cleanupQueueName, logger: l},
		events:  eventSink{publisher: publisher, topic: eventsTopic, logger: l},
		logger:  l,
	}
}

func (s *courseService) ListCourses(ctx context.Context, q CourseListQuery) (listing.Page[model.Course], error) {
	var (
		courses []model.Course
		err     error
	)
	if q.InstructorID != "" {
		courses, err = s.courses.QueryCourses(ctx, "instructor_id", q.InstructorID)
	} else {
		courses, err = s.courses.ListCourses(ctx)
	}
	if err != nil {
		return listing.Page[model.Course]{}, err
	}
	// Category matches ignore case; stored values are not normalized.
	if q.Category != "" {
		courses = filterCategory(courses, q.Category)
	}

	derived := listing.Derive(courses, q.Term, q.Sort, CourseSchema)
	return listing.Paginate(derived, q.Page, q.PageSize), nil
}

func filterCategory(courses []model.Course, category string) []model.Course {
	out := courses[:0:0]
	for _, c := range courses {
		if strings.EqualFold(c.Category, category) {
			out = append(out, c)
		}
	}
	return out
}

func (s *courseService) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	c, err := s.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	return c, nil
}

func (s *courseService) CreateCourse(ctx context.Context, payload map[string]any) (string, error) {
	actor, _ := identity.UserID(ctx)
	if actor != "" {
		payload["instructor_id"] = actor
		if _, ok := payload["instructor_name"]; !ok {
			if u, err := s.users.GetUserByID(ctx, actor); err == nil && u != nil {
				payload["instructor_name"] = u.Name
			}
		}
	}

	id, err := s.courses.CreateCourse(ctx, payload)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("course_id", id).Str("actor", actor).Msg("Course created")
	s.events.publish(ctx, EventCourseCreated, s.event(ctx, EventCourseCreated, id))
	return id, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, courseID string, payload map[string]any) error {
	if err := s.courses.UpdateCourse(ctx, courseID, payload); err != nil {
		return err
	}
	s.events.publish(ctx, EventCourseUpdated, s.event(ctx, EventCourseUpdated, courseID))
	return nil
}

func (s *courseService) DeleteCourse(ctx context.Context, courseID string) error {
	err := s.courses.DeleteCourse(ctx, courseID)
	if repository.IsNotFound(err) {
		s.logger.Warn().Str("course_id", courseID).Msg("Course already deleted")
		return nil
	}
	if err != nil {
		return err
	}
	s.cleanup.schedule(ctx, courseID, "course deleted", storage.ThumbnailPrefix(courseID))
	s.events.publish(ctx, EventCourseDeleted, s.event(ctx, EventCourseDeleted, courseID))
	return nil
}

func (s *courseService) SetThumbnail(ctx context.Context, courseID string, data []byte, contentType string) (*model.Course, error) {
	ext, err := storage.CheckImage(contentType, len(data))
	if err != nil {
		return nil, err
	}
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	url, err := s.blobs.Upload(ctx, storage.ThumbnailKey(courseID, ext), data, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateCourse(ctx, courseID, map[string]any{"thumbnail_url": url}); err != nil {
		return nil, err
	}
	return s.GetCourse(ctx, courseID)
}

func (s *courseService) event(ctx context.Context, eventType, courseID string) ChangeEvent {
	actor, _ := identity.UserID(ctx)
	return ChangeEvent{Type: eventType, ResourceID: courseID, ActorID: actor, OccurredAt: time.Now().UTC()}
}
