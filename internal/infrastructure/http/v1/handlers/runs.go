package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/infrastructure/http/v1/dto"
)

// RunHandler handles HTTP requests for yield and reprocess runs and their vignettes.
type RunHandler struct {
	*BaseHandler
	service *yield.Service
}

// NewRunHandler creates a new run handler.
func NewRunHandler(base *BaseHandler, service *yield.Service) *RunHandler {
	return &RunHandler{BaseHandler: base, service: service}
}

func (h *RunHandler) kind(c *gin.Context) (yield.RunKind, bool) {
	kind, err := yield.ParseRunKind(c.Param("kind"))
	if err != nil {
		h.Error(c, err)
		return "", false
	}
	return kind, true
}

// List handles GET /runs/:kind
func (h *RunHandler) List(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	filter, ok := h.ListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), kind, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Get handles GET /runs/:kind/:id
func (h *RunHandler) Get(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	runID, ok := h.PathID(c)
	if !ok {
		return
	}

	run, err := h.service.GetByID(c.Request.Context(), kind, runID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, run)
}

// Create handles POST /runs/:kind. The kind in the path wins over the body.
func (h *RunHandler) Create(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var req yield.CreateRunRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Kind != "" && req.Kind != kind {
		h.Error(c, apperror.NewValidation("run kind does not match path").WithDetail("field", "kind"))
		return
	}
	req.Kind = kind

	run, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, run)
}

// AvailableVignettes handles GET /vignettes/available
func (h *RunHandler) AvailableVignettes(c *gin.Context) {
	vignettes, err := h.service.Available(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if vignettes == nil {
		vignettes = []yield.AvailableVignette{}
	}
	h.OK(c, gin.H{"items": vignettes})
}

// GetVignette handles GET /vignettes/:id
func (h *RunHandler) GetVignette(c *gin.Context) {
	vignetteID, ok := h.PathID(c)
	if !ok {
		return
	}

	v, err := h.service.GetVignette(c.Request.Context(), vignetteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}
