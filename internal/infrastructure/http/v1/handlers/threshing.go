package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/documents/threshing"
	"coffeetrace/internal/infrastructure/http/v1/dto"
)

// ThreshingHandler handles HTTP requests for threshing orders.
type ThreshingHandler struct {
	*EditableDocumentHandler[*threshing.Order, threshing.Request]
	service *threshing.Service
}

// NewThreshingHandler creates a new threshing order handler.
func NewThreshingHandler(base *BaseHandler, service *threshing.Service) *ThreshingHandler {
	return &ThreshingHandler{
		EditableDocumentHandler: NewEditableDocumentHandler[*threshing.Order, threshing.Request](base, service),
		service:                 service,
	}
}

// Void handles POST /threshing-orders/:id/void. The order is removed and
// its consumption restored.
func (h *ThreshingHandler) Void(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	res, err := h.service.Void(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewVoidResponse(docID, res))
}

// Settlement handles GET /threshing-orders/:id/settlement
func (h *ThreshingHandler) Settlement(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	settlement, err := h.service.Settlement(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, settlement)
}
