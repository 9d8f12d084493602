package listing

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is one page of a derived list.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Paginate slices a derived list. Page numbers start at 1; out-of-range
// values are clamped to defaults, and a page past the end is empty.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	p.Items = items[start:end]
	return p
}
