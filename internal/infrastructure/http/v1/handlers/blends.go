package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/documents/blend"
)

// BlendHandler handles HTTP requests for blends.
type BlendHandler struct {
	*EditableDocumentHandler[*blend.Blend, blend.Request]
	service *blend.Service
}

// NewBlendHandler creates a new blend handler.
func NewBlendHandler(base *BaseHandler, service *blend.Service) *BlendHandler {
	return &BlendHandler{
		EditableDocumentHandler: NewEditableDocumentHandler[*blend.Blend, blend.Request](base, service),
		service:                 service,
	}
}

// Delete handles DELETE /blends/:id
func (h *BlendHandler) Delete(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
