package dto

import "lmsadmin/internal/listing"

// ErrorResponseDTO is the body of every error the handlers map. Code is set
// for auth errors and Field for validation errors.
type ErrorResponseDTO struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// PageDTO is one page of a list endpoint
type PageDTO[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage converts a derived page, mapping each item with conv.
func NewPage[S, T any](p listing.Page[S], conv func(*S) T) PageDTO[T] {
	items := make([]T, len(p.Items))
	for i := range p.Items {
		items[i] = conv(&p.Items[i])
	}
	return PageDTO[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}

type DraftOpenDTO struct {
	RecordID string `json:"record_id"`
}

type DraftFieldsDTO struct {
	Fields map[string]any `json:"fields" validate:"required"`
}
