// Package listing derives the rendered sequence of a record list from the
// loaded records, a free-text filter term and an optional sort directive.
package listing

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type SortField string

const (
	SortTitle       SortField = "title"
	SortCreatedDate SortField = "createdDate"
	SortRating      SortField = "rating"
	SortPrice       SortField = "price"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var (
	ErrUnknownSortField = errors.New("unknown sort field")
	ErrUnknownDirection = errors.New("unknown sort direction")
)

// Sort is a sort directive. A nil *Sort keeps the natural (fetch) order.
type Sort struct {
	Field     SortField
	Direction Direction
}

// Valid reports whether the directive names a known field and direction.
func (s Sort) Valid() error {
	switch s.Field {
	case SortTitle, SortCreatedDate, SortRating, SortPrice:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSortField, s.Field)
	}
	switch s.Direction {
	case Asc, Desc:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, s.Direction)
	}
	return nil
}

// ParseSort builds a directive from query-string values. An empty field means
// no directive; an empty direction means ascending.
func ParseSort(field, direction string) (*Sort, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	s := Sort{Direction: Asc}
	switch strings.ToLower(field) {
	case "title":
		s.Field = SortTitle
	case "createddate", "created_date", "created_at":
		s.Field = SortCreatedDate
	case "rating":
		s.Field = SortRating
	case "price":
		s.Field = SortPrice
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, field)
	}
	if d := strings.ToLower(strings.TrimSpace(direction)); d != "" {
		s.Direction = Direction(d)
	}
	if err := s.Valid(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Schema tells Derive how to read a record type. SearchFields returns the
// values the filter term is matched against; SortValue returns the raw value
// of a sort field, or nil when the record has none.
type Schema[T any] struct {
	SearchFields func(T) []string
	SortValue    func(T, SortField) any
}

// Derive filters records by term and then stable-sorts them by s. The input
// slice is never modified. Derive has no side effects.
func Derive[T any](records []T, term string, s *Sort, schema Schema[T]) []T {
	out := make([]T, 0, len(records))
	needle := strings.ToLower(term)
	for _, r := range records {
		if needle == "" || matches(schema.SearchFields(r), needle) {
			out = append(out, r)
		}
	}
	if s == nil || len(out) < 2 {
		return out
	}

	type keyed struct {
		rec  T
		text string
		num  float64
	}
	rows := make([]keyed, len(out))
	for i, r := range out {
		raw := schema.SortValue(r, s.Field)
		switch s.Field {
		case SortTitle:
			rows[i] = keyed{rec: r, text: strings.ToLower(Text(raw))}
		case SortCreatedDate:
			rows[i] = keyed{rec: r, num: EpochSeconds(raw)}
		default:
			rows[i] = keyed{rec: r, num: Number(raw)}
		}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		var c int
		if s.Field == SortTitle {
			c = strings.Compare(a.text, b.text)
		} else {
			c = cmp.Compare(a.num, b.num)
		}
		if s.Direction == Desc {
			return -c
		}
		return c
	})
	for i := range rows {
		out[i] = rows[i].rec
	}
	return out
}

func matches(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ViewModel holds the inputs of a list screen and derives its display list on
// demand. It owns its copy of the records; it is not safe for concurrent use.
type ViewModel[T any] struct {
	schema  Schema[T]
	records []T
	term    string
	sort    *Sort
}

func NewViewModel[T any](schema Schema[T]) *ViewModel[T] {
	return &ViewModel[T]{schema: schema}
}

// SetRecords replaces the collection wholesale.
func (vm *ViewModel[T]) SetRecords(records []T) {
	vm.records = slices.Clone(records)
}

func (vm *ViewModel[T]) SetFilterTerm(term string) {
	vm.term = term
}

func (vm *ViewModel[T]) SetSort(field SortField, direction Direction) error {
	s := Sort{Field: field, Direction: direction}
	if err := s.Valid(); err != nil {
		return err
	}
	vm.sort = &s
	return nil
}

// ClearSort restores the natural order.
func (vm *ViewModel[T]) ClearSort() {
	vm.sort = nil
}

func (vm *ViewModel[T]) Len() int {
	return len(vm.records)
}

func (vm *ViewModel[T]) Derive() []T {
	return Derive(vm.records, vm.term, vm.sort, vm.schema)
}
