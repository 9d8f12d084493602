package form

import (
	"errors"
	"testing"
	"time"
)

func TestCourseDraftValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		field  string
	}{
		{"empty", nil, "title"},
		{"blank title", map[string]any{"title": "   ", "category": "Design"}, "title"},
		{"missing category", map[string]any{"title": "Go"}, "category"},
		{"required before format", map[string]any{"title": "Go", "price": "cheap"}, "category"},
		{"bad price", map[string]any{"title": "Go", "category": "Design", "price": "cheap"}, "price"},
		{"fractional lessons", map[string]any{"title": "Go", "category": "Design", "lessons": "2.5"}, "lessons"},
		{"bad preview link", map[string]any{"title": "Go", "category": "Design", "preview_link": "not a url"}, "preview_link"},
		{"valid", map[string]any{"title": "Go", "category": "Design", "price": 0, "lessons": "4"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewCourseDraft()
			for k, v := range tt.values {
				if err := d.Set(k, v); err != nil {
					t.Fatalf("Set(%q): %v", k, err)
				}
			}
			err := d.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected valid draft, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("expected field %q, got %q (%s)", tt.field, ve.Field, ve.Message)
			}
		})
	}
}

func TestUserDraftValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		field  string
	}{
		{"missing name", map[string]any{"email": "a@b.co"}, "name"},
		{"missing email", map[string]any{"name": "Ada"}, "email"},
		{"missing role", map[string]any{"name": "Ada", "email": "a@b.co", "role": ""}, "role"},
		{"bad email", map[string]any{"name": "Ada", "email": "nope"}, "email"},
		{"bad role", map[string]any{"name": "Ada", "email": "a@b.co", "role": "owner"}, "role"},
		{"bad status", map[string]any{"name": "Ada", "email": "a@b.co", "status": "banned"}, "status"},
		{"valid", map[string]any{"name": "Ada", "email": "ADA@Example.com", "role": "Instructor"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewUserDraft()
			for k, v := range tt.values {
				if err := d.Set(k, v); err != nil {
					t.Fatalf("Set(%q): %v", k, err)
				}
			}
			err := d.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected valid draft, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected %q validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestUserDraftPayloadNormalizesCase(t *testing.T) {
	d := NewUserDraft()
	d.Set("name", " Ada ")
	d.Set("email", "ADA@Example.com")
	d.Set("role", "Instructor")
	p := d.Payload()
	if p["name"] != "Ada" || p["email"] != "ada@example.com" || p["role"] != "instructor" {
		t.Fatalf("unexpected payload %v", p)
	}
	if p["courses_enrolled"] != 0 {
		t.Fatalf("courses_enrolled should default to 0, got %v", p["courses_enrolled"])
	}
}

func TestCourseDraftLists(t *testing.T) {
	d := NewCourseDraft()
	d.Set("tags", "go, web ,,api")
	d.Set("requirements", []any{"laptop", "", " curiosity "})
	p := d.Payload()
	tags := p["tags"].([]string)
	reqs := p["requirements"].([]string)
	if len(tags) != 3 || tags[1] != "web" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if len(reqs) != 2 || reqs[1] != "curiosity" {
		t.Fatalf("unexpected requirements %v", reqs)
	}
	if err := d.Set("features", "yes"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("features must be an object, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	f := New(NewCourseDraft, &fakeTarget{})
	id := r.Open("u1", "course", f)

	got, kind, err := r.Get("u1", id)
	if err != nil || got != f || kind != "course" {
		t.Fatalf("Get: %v %q %v", got, kind, err)
	}
	if _, _, err := r.Get("u2", id); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("other owners must not see the draft, got %v", err)
	}
	if err := r.Discard("u2", id); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("other owners must not discard the draft, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := r.Get("u1", id); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expired draft should be gone, got %v", err)
	}
	r.Open("u1", "user", New(NewUserDraft, &fakeTarget{}))
	if r.Len() != 1 {
		t.Fatalf("expired drafts should be swept on open, have %d", r.Len())
	}
}
