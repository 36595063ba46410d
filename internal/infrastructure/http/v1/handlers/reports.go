package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/reports"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetIntegrity handles GET /reports/integrity
func (h *ReportsHandler) GetIntegrity(c *gin.Context) {
	report, err := h.service.Integrity(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetStock handles GET /reports/stock
func (h *ReportsHandler) GetStock(c *gin.Context) {
	summary, err := h.service.StockSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
