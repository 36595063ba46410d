package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/documents/dispatch"
)

// DispatchHandler handles HTTP requests for dispatches.
type DispatchHandler struct {
	*EditableDocumentHandler[*dispatch.Dispatch, dispatch.Request]
	service *dispatch.Service
}

// NewDispatchHandler creates a new dispatch handler.
func NewDispatchHandler(base *BaseHandler, service *dispatch.Service) *DispatchHandler {
	return &DispatchHandler{
		EditableDocumentHandler: NewEditableDocumentHandler[*dispatch.Dispatch, dispatch.Request](base, service),
		service:                 service,
	}
}

// Void handles POST /dispatches/:id/void
func (h *DispatchHandler) Void(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	d, err := h.service.Void(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}
