package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/listing"

	"github.com/google/uuid"
)

type memoryDoc struct {
	doc Document
	seq int
}

// MemoryStore is an in-process DocumentStore with the same semantics as the
// Postgres store. It backs local runs without a database and the tests.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int
	docs  map[string]map[string]*memoryDoc
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]*memoryDoc),
		clock: time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, payload map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, collection, id, payload); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) CreateWithID(ctx context.Context, collection, id string, payload map[string]any) error {
	owner, ok := identity.UserID(ctx)
	if !ok {
		return &StoreError{Op: "create", Collection: collection, Err: ErrUnauthenticated}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.docs[collection]
	if coll == nil {
		coll = make(map[string]*memoryDoc)
		s.docs[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return &StoreError{Op: "create", Collection: collection, ID: id, Err: fmt.Errorf("document already exists")}
	}
	now := s.clock().UTC()
	s.seq++
	coll[id] = &memoryDoc{
		seq: s.seq,
		doc: Document{
			ID:         id,
			Collection: collection,
			OwnerID:    owner,
			Data:       maps.Clone(payload),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	if coll[id].doc.Data == nil {
		coll[id].doc.Data = map[string]any{}
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if _, ok := identity.UserID(ctx); !ok {
		return &StoreError{Op: "update", Collection: collection, ID: id, Err: ErrUnauthenticated}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.docs[collection][id]
	if !ok {
		return &StoreError{Op: "update", Collection: collection, ID: id, Err: ErrNotFound}
	}
	data := maps.Clone(md.doc.Data)
	maps.Copy(data, partial)
	md.doc.Data = data
	md.doc.UpdatedAt = s.clock().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if _, ok := identity.UserID(ctx); !ok {
		return &StoreError{Op: "delete", Collection: collection, ID: id, Err: ErrUnauthenticated}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[collection][id]; !ok {
		return &StoreError{Op: "delete", Collection: collection, ID: id, Err: ErrNotFound}
	}
	delete(s.docs[collection], id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	return s.collect(collection, func(Document) bool { return true }), nil
}

func (s *MemoryStore) Query(_ context.Context, collection, field, value string) ([]Document, error) {
	return s.collect(collection, func(d Document) bool {
		v, ok := d.Data[field]
		return ok && listing.Text(v) == value
	}), nil
}

func (s *MemoryStore) GetByID(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.docs[collection][id]
	if !ok {
		return nil, nil
	}
	doc := md.doc
	doc.Data = maps.Clone(md.doc.Data)
	return &doc, nil
}

func (s *MemoryStore) collect(collection string, keep func(Document) bool) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*memoryDoc, 0, len(s.docs[collection]))
	for _, md := range s.docs[collection] {
		if keep(md.doc) {
			entries = append(entries, md)
		}
	}
	slices.SortFunc(entries, func(a, b *memoryDoc) int { return a.seq - b.seq })

	docs := make([]Document, len(entries))
	for i, md := range entries {
		docs[i] = md.doc
		docs[i].Data = maps.Clone(md.doc.Data)
	}
	return docs
}
