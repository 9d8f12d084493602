package repository

import (
	"context"
	"errors"
	"testing"

	"lmsadmin/internal/identity"
)

func authed() context.Context {
	return identity.WithUserID(context.Background(), "admin-1")
}

func TestMemoryStoreRequiresIdentity(t *testing.T) {
	s := NewMemoryStore()
	anon := context.Background()

	if _, err := s.Create(anon, CollectionCourses, map[string]any{"title": "Go"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on create, got %v", err)
	}
	id, err := s.Create(authed(), CollectionCourses, map[string]any{"title": "Go"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Update(anon, CollectionCourses, id, map[string]any{"title": "Rust"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on update, got %v", err)
	}
	if err := s.Delete(anon, CollectionCourses, id); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on delete, got %v", err)
	}

	var se *StoreError
	_, err = s.Create(anon, CollectionCourses, nil)
	if !errors.As(err, &se) || se.Op != "create" {
		t.Fatalf("expected a create StoreError, got %#v", err)
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := authed()

	first, _ := s.Create(ctx, CollectionCourses, map[string]any{"title": "First", "price": 10})
	second, _ := s.Create(ctx, CollectionCourses, map[string]any{"title": "Second"})

	if err := s.Update(ctx, CollectionCourses, first, map[string]any{"price": 15, "level": "beginner"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, err := s.GetByID(ctx, CollectionCourses, first)
	if err != nil || doc == nil {
		t.Fatalf("GetByID: %v %v", doc, err)
	}
	if doc.Data["title"] != "First" || doc.Data["price"] != 15 || doc.Data["level"] != "beginner" {
		t.Fatalf("update did not merge: %v", doc.Data)
	}
	if doc.OwnerID != "admin-1" {
		t.Fatalf("expected owner admin-1, got %q", doc.OwnerID)
	}

	docs, _ := s.List(ctx, CollectionCourses)
	if len(docs) != 2 || docs[0].ID != first || docs[1].ID != second {
		t.Fatalf("list should keep creation order, got %v", docs)
	}

	if err := s.Delete(ctx, CollectionCourses, first); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, CollectionCourses, first); !IsNotFound(err) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if err := s.Update(ctx, CollectionCourses, first, map[string]any{"x": 1}); !IsNotFound(err) {
		t.Fatalf("update of deleted doc should be not found, got %v", err)
	}
	if doc, err := s.GetByID(ctx, CollectionCourses, first); doc != nil || err != nil {
		t.Fatalf("expected nil, nil for deleted doc, got %v %v", doc, err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := authed()
	payload := map[string]any{"title": "Go"}
	id, _ := s.Create(ctx, CollectionCourses, payload)
	payload["title"] = "changed"

	doc, _ := s.GetByID(ctx, CollectionCourses, id)
	doc.Data["title"] = "mutated"

	again, _ := s.GetByID(ctx, CollectionCourses, id)
	if again.Data["title"] != "Go" {
		t.Fatalf("store data leaked to caller: %v", again.Data)
	}
}

func TestMemoryStoreQuery(t *testing.T) {
	s := NewMemoryStore()
	ctx := authed()
	s.Create(ctx, CollectionCourses, map[string]any{"category": "Design"})
	want, _ := s.Create(ctx, CollectionCourses, map[string]any{"category": "Programming"})
	s.Create(ctx, CollectionCourses, map[string]any{"course_category": "Programming"})

	docs, err := s.Query(ctx, CollectionCourses, "category", "Programming")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != want {
		t.Fatalf("unexpected query result %v", docs)
	}
}

func TestCreateWithIDRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	ctx := authed()
	if err := s.CreateWithID(ctx, CollectionUsers, "u1", map[string]any{"name": "A"}); err != nil {
		t.Fatalf("CreateWithID: %v", err)
	}
	if err := s.CreateWithID(ctx, CollectionUsers, "u1", map[string]any{"name": "B"}); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}
