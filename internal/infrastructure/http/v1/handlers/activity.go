package handlers

import (
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/activity"
)

// ActivityHandler serves the activity history of documents.
type ActivityHandler struct {
	*BaseHandler
	log *activity.Log
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(base *BaseHandler, log *activity.Log) *ActivityHandler {
	return &ActivityHandler{BaseHandler: base, log: log}
}

// For returns a GET /{entity}/:id/history handler for entityType.
func (h *ActivityHandler) For(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.history(c, entityType)
	}
}

// ForParam is like For but reads the entity type from the named path parameter.
func (h *ActivityHandler) ForParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.history(c, c.Param(name))
	}
}

func (h *ActivityHandler) history(c *gin.Context, entityType string) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	entries, err := h.log.History(c.Request.Context(), entityType, docID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	h.OK(c, gin.H{"items": entries})
}
