// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/reconcile"
)

// --- List ---

// ListQuery contains list parameters shared by every document endpoint.
type ListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"min=0,max=500"`
	Offset int    `form:"offset" binding:"min=0"`
}

// ToFilter converts the query to a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Status = q.Status
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult converts a domain list result.
func FromListResult[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// --- Void ---

// VoidResponse reports the balance changes a void applied.
type VoidResponse struct {
	ID      string            `json:"id"`
	Applied []reconcile.Delta `json:"applied"`
	Skipped []reconcile.Delta `json:"skipped,omitempty"`
}

// NewVoidResponse builds the response from a reconciliation result.
func NewVoidResponse(docID string, res reconcile.Result) VoidResponse {
	applied := res.Applied
	if applied == nil {
		applied = []reconcile.Delta{}
	}
	return VoidResponse{ID: docID, Applied: applied, Skipped: res.Skipped}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
