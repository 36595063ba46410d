package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/documents/receipt"
)

// ReceiptHandler handles HTTP requests for receipts.
type ReceiptHandler struct {
	*BaseDocumentHandler[*receipt.Receipt, receipt.CreateRequest]
	service *receipt.Service
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{
		BaseDocumentHandler: NewBaseDocumentHandler[*receipt.Receipt, receipt.CreateRequest](base, service),
		service:             service,
	}
}

// Void handles POST /receipts/:id/void
func (h *ReceiptHandler) Void(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	rec, err := h.service.Void(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}
