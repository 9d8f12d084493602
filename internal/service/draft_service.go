package service

import (
	"context"
	"fmt"

	"lmsadmin/internal/form"
	"lmsadmin/internal/identity"
	"lmsadmin/internal/repository"
)

const (
	DraftCourse = "course"
	DraftUser   = "user"
)

// DraftView is the state of a server-held draft as shown to the console.
type DraftView struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	State    string         `json:"state"`
	RecordID string         `json:"record_id,omitempty"`
	Values   map[string]any `json:"values"`
}

// DraftService opens create and edit forms for the caller and drives them
// across requests.
type DraftService interface {
	// Open starts a draft of kind. A non-empty recordID opens an edit form
	// prefilled from the stored record.
	Open(ctx context.Context, kind, recordID string) (*DraftView, error)
	Get(ctx context.Context, draftID string) (*DraftView, error)
	SetFields(ctx context.Context, draftID string, fields map[string]any) (*DraftView, error)
	// Submit returns the id of the created or updated record. Edit drafts are
	// closed after a successful submit.
	Submit(ctx context.Context, draftID string) (string, error)
	Reset(ctx context.Context, draftID string) (*DraftView, error)
	Discard(ctx context.Context, draftID string) error
	// SubmitOnce fills and submits a form in one call without keeping a
	// draft. It backs the plain create and update endpoints.
	SubmitOnce(ctx context.Context, kind, recordID string, fields map[string]any) (string, error)
}

type draftService struct {
	registry *form.Registry
	courses  CourseService
	users    UserService
}

func NewDraftService(registry *form.Registry, courses CourseService, users UserService) DraftService {
	return &draftService{registry: registry, courses: courses, users: users}
}

type courseTarget struct{ courses CourseService }

func (t courseTarget) Create(ctx context.Context, payload map[string]any) (string, error) {
	return t.courses.CreateCourse(ctx, payload)
}

func (t courseTarget) Update(ctx context.Context, id string, payload map[string]any) error {
	return t.courses.UpdateCourse(ctx, id, payload)
}

type userTarget struct{ users UserService }

func (t userTarget) Create(ctx context.Context, payload map[string]any) (string, error) {
	return t.users.CreateUser(ctx, payload)
}

func (t userTarget) Update(ctx context.Context, id string, payload map[string]any) error {
	return t.users.UpdateUser(ctx, id, payload)
}

func owner(ctx context.Context) (string, error) {
	uid, ok := identity.UserID(ctx)
	if !ok {
		return "", &repository.StoreError{Op: "draft", Collection: "drafts", Err: repository.ErrUnauthenticated}
	}
	return uid, nil
}

func (s *draftService) Open(ctx context.Context, kind, recordID string) (*DraftView, error) {
	uid, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.newForm(ctx, kind, recordID)
	if err != nil {
		return nil, err
	}
	id := s.registry.Open(uid, kind, f)
	return view(id, kind, f), nil
}

func (s *draftService) SubmitOnce(ctx context.Context, kind, recordID string, fields map[string]any) (string, error) {
	if _, err := owner(ctx); err != nil {
		return "", err
	}
	f, err := s.newForm(ctx, kind, recordID)
	if err != nil {
		return "", err
	}
	for name, v := range fields {
		if err := f.SetField(name, v); err != nil {
			return "", err
		}
	}
	return f.Submit(ctx)
}

// newForm builds a create form, or an edit form prefilled from the stored
// record when recordID is set.
func (s *draftService) newForm(ctx context.Context, kind, recordID string) (*form.Form, error) {
	var f *form.Form
	switch kind {
	case DraftCourse:
		target := courseTarget{s.courses}
		if recordID == "" {
			f = form.New(form.NewCourseDraft, target)
			break
		}
		c, err := s.courses.GetCourse(ctx, recordID)
		if err != nil {
			return nil, err
		}
		f, err = form.NewEdit(form.NewCourseDraft, target, recordID, form.CourseValues(c))
		if err != nil {
			return nil, err
		}
	case DraftUser:
		target := userTarget{s.users}
		if recordID == "" {
			f = form.New(form.NewUserDraft, target)
			break
		}
		u, err := s.users.GetUser(ctx, recordID)
		if err != nil {
			return nil, err
		}
		f, err = form.NewEdit(form.NewUserDraft, target, recordID, form.UserValues(u))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrDraftKind, kind)
	}
	return f, nil
}

func (s *draftService) lookup(ctx context.Context, draftID string) (*form.Form, string, string, error) {
	uid, err := owner(ctx)
	if err != nil {
		return nil, "", "", err
	}
	f, kind, err := s.registry.Get(uid, draftID)
	if err != nil {
		return nil, "", "", err
	}
	return f, kind, uid, nil
}

func (s *draftService) Get(ctx context.Context, draftID string) (*DraftView, error) {
	f, kind, _, err := s.lookup(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return view(draftID, kind, f), nil
}

func (s *draftService) SetFields(ctx context.Context, draftID string, fields map[string]any) (*DraftView, error) {
	f, kind, _, err := s.lookup(ctx, draftID)
	if err != nil {
		return nil, err
	}
	for name, v := range fields {
		if err := f.SetField(name, v); err != nil {
			return nil, err
		}
	}
	return view(draftID, kind, f), nil
}

func (s *draftService) Submit(ctx context.Context, draftID string) (string, error) {
	f, _, uid, err := s.lookup(ctx, draftID)
	if err != nil {
		return "", err
	}
	id, err := f.Submit(ctx)
	if err != nil {
		return "", err
	}
	if f.RecordID() != "" {
		// An edit draft is finished once its record is updated.
		_ = s.registry.Discard(uid, draftID)
	}
	return id, nil
}

func (s *draftService) Reset(ctx context.Context, draftID string) (*DraftView, error) {
	f, kind, _, err := s.lookup(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := f.Reset(); err != nil {
		return nil, err
	}
	return view(draftID, kind, f), nil
}

func (s *draftService) Discard(ctx context.Context, draftID string) error {
	uid, err := owner(ctx)
	if err != nil {
		return err
	}
	return s.registry.Discard(uid, draftID)
}

func view(id, kind string, f *form.Form) *DraftView {
	return &DraftView{
		ID:       id,
		Kind:     kind,
		State:    f.State().String(),
		RecordID: f.RecordID(),
		Values:   f.Values(),
	}
}
