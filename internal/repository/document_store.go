package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"lmsadmin/internal/identity"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	CollectionCourses     = "courses"
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
)

// Document is one stored record. Data keeps whatever field names the writer
// used; typed repositories normalize it.
type Document struct {
	ID         string
	Collection string
	OwnerID    string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentStore is the record store boundary: schemaless documents grouped
// in collections. Mutations require an authenticated caller in ctx.
type DocumentStore interface {
	// Create stores payload under a new identifier and returns it.
	Create(ctx context.Context, collection string, payload map[string]any) (string, error)
	// CreateWithID stores payload under a caller-chosen identifier.
	CreateWithID(ctx context.Context, collection, id string, payload map[string]any) error
	// Update merges partial into the stored document.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	// Delete removes a document. Deleting a missing document fails with ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	// List returns the whole collection in creation order.
	List(ctx context.Context, collection string) ([]Document, error)
	// GetByID returns nil, nil when the document does not exist.
	GetByID(ctx context.Context, collection, id string) (*Document, error)
	// Query returns the documents whose top-level field equals value.
	Query(ctx context.Context, collection, field, value string) ([]Document, error)
}

type pgDocumentStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewDocumentStore creates a DocumentStore over the documents table.
func NewDocumentStore(db *sql.DB, logger zerolog.Logger) DocumentStore {
	return &pgDocumentStore{
		db:     db,
		logger: logger.With().Str("repository", "DocumentStore").Logger(),
	}
}

func (s *pgDocumentStore) Create(ctx context.Context, collection string, payload map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.insert(ctx, "create", collection, id, payload); err != nil {
		return "", err
	}
	return id, nil
}

func (s *pgDocumentStore) CreateWithID(ctx context.Context, collection, id string, payload map[string]any) error {
	return s.insert(ctx, "create", collection, id, payload)
}

func (s *pgDocumentStore) insert(ctx context.Context, op, collection, id string, payload map[string]any) error {
	owner, ok := identity.UserID(ctx)
	if !ok {
		return &StoreError{Op: op, Collection: collection, Err: ErrUnauthenticated}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return &StoreError{Op: op, Collection: collection, ID: id, Err: fmt.Errorf("failed to encode payload: %w", err)}
	}
	query := `
		INSERT INTO documents (collection, id, owner_id, data)
		VALUES ($1, $2, $3, $4::jsonb)
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, owner, string(data)); err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to insert document")
		return &StoreError{Op: op, Collection: collection, ID: id, Err: err}
	}
	return nil
}

func (s *pgDocumentStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if _, ok := identity.UserID(ctx); !ok {
		return &StoreError{Op: "update", Collection: collection, ID: id, Err: ErrUnauthenticated}
	}
	data, err := json.Marshal(partial)
	if err != nil {
		return &StoreError{Op: "update", Collection: collection, ID: id, Err: fmt.Errorf("failed to encode payload: %w", err)}
	}
	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	res, err := s.db.ExecContext(ctx, query, collection, id, string(data))
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to update document")
		return &StoreError{Op: "update", Collection: collection, ID: id, Err: err}
	}
	return checkAffected(res, "update", collection, id)
}

func (s *pgDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, ok := identity.UserID(ctx); !ok {
		return &StoreError{Op: "delete", Collection: collection, ID: id, Err: ErrUnauthenticated}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to delete document")
		return &StoreError{Op: "delete", Collection: collection, ID: id, Err: err}
	}
	return checkAffected(res, "delete", collection, id)
}

func checkAffected(res sql.Result, op, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: op, Collection: collection, ID: id, Err: err}
	}
	if n == 0 {
		return &StoreError{Op: op, Collection: collection, ID: id, Err: ErrNotFound}
	}
	return nil
}

func (s *pgDocumentStore) List(ctx context.Context, collection string) ([]Document, error) {
	query := `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at ASC, id ASC
	`
	return s.queryDocuments(ctx, "list", collection, query, collection)
}

func (s *pgDocumentStore) Query(ctx context.Context, collection, field, value string) ([]Document, error) {
	query := `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND data ->> $2 = $3
		ORDER BY created_at ASC, id ASC
	`
	return s.queryDocuments(ctx, "query", collection, query, collection, field, value)
}

func (s *pgDocumentStore) queryDocuments(ctx context.Context, op, collection, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: op, Collection: collection, Err: err}
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc Document
			raw []byte
		)
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, &StoreError{Op: op, Collection: collection, Err: fmt.Errorf("failed to scan document row: %w", err)}
		}
		doc.Collection = collection
		if doc.Data, err = decodeData(raw); err != nil {
			// A corrupt document must not hide the rest of the collection.
			s.logger.Warn().Err(err).Str("collection", collection).Str("id", doc.ID).Msg("Skipping undecodable document")
			doc.Data = map[string]any{}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: op, Collection: collection, Err: fmt.Errorf("row iteration error: %w", err)}
	}
	return docs, nil
}

func (s *pgDocumentStore) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	doc := Document{ID: id, Collection: collection}
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&doc.OwnerID, &raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &StoreError{Op: "get", Collection: collection, ID: id, Err: err}
	}
	if doc.Data, err = decodeData(raw); err != nil {
		return nil, &StoreError{Op: "get", Collection: collection, ID: id, Err: err}
	}
	return &doc, nil
}

// decodeData keeps numbers as json.Number so integer fields survive intact.
func decodeData(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode document data: %w", err)
	}
	return data, nil
}

func sortDocuments(docs []Document) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
