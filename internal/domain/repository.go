// Package domain provides types shared by the document services.
package domain

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Status filters by document status (empty means any)
	Status string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit: 50,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Paginate slices items according to the filter. A non-positive limit returns everything after Offset.
func Paginate[T any](items []T, f ListFilter) ListResult[T] {
	total := len(items)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < total {
		end = offset + f.Limit
	}

	page := make([]T, 0, end-offset)
	page = append(page, items[offset:end]...)
	return ListResult[T]{
		Items:      page,
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     offset,
	}
}
