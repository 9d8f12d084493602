package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTarget struct {
	creates  atomic.Int32
	updates  atomic.Int32
	err      error
	release  chan struct{}
	entered  chan struct{}
	mu       sync.Mutex
	payloads []map[string]any
}

func (t *fakeTarget) Create(ctx context.Context, payload map[string]any) (string, error) {
	t.creates.Add(1)
	t.record(payload)
	t.wait()
	if t.err != nil {
		return "", t.err
	}
	return "new-id", nil
}

func (t *fakeTarget) Update(ctx context.Context, id string, payload map[string]any) error {
	t.updates.Add(1)
	t.record(payload)
	t.wait()
	return t.err
}

func (t *fakeTarget) record(p map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.payloads = append(t.payloads, p)
}

func (t *fakeTarget) wait() {
	if t.entered != nil {
		t.entered <- struct{}{}
	}
	if t.release != nil {
		<-t.release
	}
}

func (t *fakeTarget) last() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.payloads[len(t.payloads)-1]
}

func fill(t *testing.T, f *Form, values map[string]any) {
	t.Helper()
	for k, v := range values {
		if err := f.SetField(k, v); err != nil {
			t.Fatalf("SetField(%q): %v", k, err)
		}
	}
}

func TestDoubleSubmitCallsCreateOnce(t *testing.T) {
	target := &fakeTarget{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := New(NewCourseDraft, target)
	fill(t, f, map[string]any{"title": "Go", "category": "Programming"})

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-target.entered

	if f.State() != Submitting {
		t.Fatalf("expected Submitting, got %s", f.State())
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if err := f.SetField("title", "other"); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("SetField while submitting: expected ErrSubmitInProgress, got %v", err)
	}
	if err := f.Reset(); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("Reset while submitting: expected ErrSubmitInProgress, got %v", err)
	}

	close(target.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first submit failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first submit did not finish")
	}
	if n := target.creates.Load(); n != 1 {
		t.Fatalf("expected exactly one create, got %d", n)
	}
	if f.State() != Idle {
		t.Fatalf("expected Idle after success, got %s", f.State())
	}
	if v := f.Values(); v["title"] != "" {
		t.Fatalf("draft should be reset after success, got %v", v)
	}
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	boom := errors.New("permission denied")
	target := &fakeTarget{err: boom}
	f := New(NewCourseDraft, target)
	fill(t, f, map[string]any{"title": "Go", "category": "Programming", "price": "19.99"})

	if _, err := f.Submit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected adapter error unchanged, got %v", err)
	}
	if f.State() != Editing {
		t.Fatalf("expected Editing after failure, got %s", f.State())
	}
	if v := f.Values(); v["title"] != "Go" || v["price"] != "19.99" {
		t.Fatalf("draft should be preserved, got %v", v)
	}

	target.err = nil
	id, err := f.Submit(context.Background())
	if err != nil || id != "new-id" {
		t.Fatalf("retry: %q %v", id, err)
	}
	if n := target.creates.Load(); n != 2 {
		t.Fatalf("expected two create calls, got %d", n)
	}
}

func TestSubmitValidationNeverReachesTarget(t *testing.T) {
	target := &fakeTarget{}
	f := New(NewCourseDraft, target)
	fill(t, f, map[string]any{"category": "Design"})

	_, err := f.Submit(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
	if target.creates.Load() != 0 {
		t.Fatal("target must not be called on validation failure")
	}
	if f.State() != Editing {
		t.Fatalf("expected Editing, got %s", f.State())
	}
}

func TestSubmitCoercesPayload(t *testing.T) {
	target := &fakeTarget{}
	f := New(NewCourseDraft, target)
	fill(t, f, map[string]any{
		"title": "Go", "category": "Programming",
		"price": "49.5", "lessons": 12.0, "duration": "3.5",
		"certificate": "true",
	})
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p := target.last()
	if p["price"] != 49.5 || p["lessons"] != 12 || p["duration"] != 3.5 {
		t.Fatalf("numbers not coerced: %v", p)
	}
	if tags, ok := p["tags"].([]string); !ok || tags == nil || len(tags) != 0 {
		t.Fatalf("tags should default to empty list, got %#v", p["tags"])
	}
	feats, ok := p["features"].(map[string]any)
	if !ok || feats["certificate"] != true || feats["quizzes"] != false {
		t.Fatalf("unexpected features %#v", p["features"])
	}
	if _, ok := p["status"]; ok {
		t.Fatal("empty status should be left to the store default")
	}
}

func TestEditFormUpdatesBoundRecord(t *testing.T) {
	target := &fakeTarget{}
	f, err := NewEdit(NewCourseDraft, target, "c-7", map[string]any{"title": "Old", "category": "Data"})
	if err != nil {
		t.Fatalf("NewEdit: %v", err)
	}
	fill(t, f, map[string]any{"title": "New"})
	id, err := f.Submit(context.Background())
	if err != nil || id != "c-7" {
		t.Fatalf("Submit: %q %v", id, err)
	}
	if target.updates.Load() != 1 || target.creates.Load() != 0 {
		t.Fatalf("expected one update and no create, got %d/%d", target.updates.Load(), target.creates.Load())
	}
	if target.last()["title"] != "New" || target.last()["category"] != "Data" {
		t.Fatalf("unexpected payload %v", target.last())
	}
}

func TestStateTransitions(t *testing.T) {
	f := New(NewUserDraft, &fakeTarget{})
	if f.State() != Idle {
		t.Fatalf("new form should be Idle, got %s", f.State())
	}
	if err := f.SetField("name", "Ada"); err != nil {
		t.Fatal(err)
	}
	if f.State() != Editing {
		t.Fatalf("expected Editing, got %s", f.State())
	}
	if err := f.SetField("nickname", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := f.Reset(); err != nil {
		t.Fatal(err)
	}
	if f.State() != Idle || f.Values()["name"] != "" || f.Values()["role"] != "student" {
		t.Fatalf("reset should restore initial values, got %s %v", f.State(), f.Values())
	}
}
