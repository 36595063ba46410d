package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain"
	"coffeetrace/internal/infrastructure/http/v1/dto"
)

// DocumentService defines the operations BaseDocumentHandler needs.
type DocumentService[T any, R any] interface {
	Create(ctx context.Context, req R) (T, error)
	GetByID(ctx context.Context, id string) (T, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error)
}

// EditableDocumentService adds editing to DocumentService.
type EditableDocumentService[T any, R any] interface {
	DocumentService[T, R]
	Update(ctx context.Context, id string, req R) (T, error)
}

// BaseDocumentHandler provides generic HTTP handlers for document entities.
type BaseDocumentHandler[T any, R any] struct {
	*BaseHandler
	service DocumentService[T, R]
}

// NewBaseDocumentHandler creates a new base document handler.
func NewBaseDocumentHandler[T any, R any](base *BaseHandler, service DocumentService[T, R]) *BaseDocumentHandler[T, R] {
	return &BaseDocumentHandler[T, R]{BaseHandler: base, service: service}
}

// List handles GET /{entity}
func (h *BaseDocumentHandler[T, R]) List(c *gin.Context) {
	filter, ok := h.ListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Get handles GET /{entity}/:id
func (h *BaseDocumentHandler[T, R]) Get(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Create handles POST /{entity}
func (h *BaseDocumentHandler[T, R]) Create(c *gin.Context) {
	var req R
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// EditableDocumentHandler adds PUT to BaseDocumentHandler.
type EditableDocumentHandler[T any, R any] struct {
	*BaseDocumentHandler[T, R]
	editor EditableDocumentService[T, R]
}

// NewEditableDocumentHandler creates a handler for documents that can be edited.
func NewEditableDocumentHandler[T any, R any](base *BaseHandler, service EditableDocumentService[T, R]) *EditableDocumentHandler[T, R] {
	return &EditableDocumentHandler[T, R]{
		BaseDocumentHandler: NewBaseDocumentHandler[T, R](base, service),
		editor:              service,
	}
}

// Update handles PUT /{entity}/:id. The body is the full new document.
func (h *EditableDocumentHandler[T, R]) Update(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req R
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.editor.Update(c.Request.Context(), docID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
