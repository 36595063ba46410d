// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// DocumentRouteHandler defines the interface for document handlers.
// All document handlers must implement these methods.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// DocumentUpdateHandler is an optional interface for documents that can be edited.
type DocumentUpdateHandler interface {
	Update(c *gin.Context)
}

// DocumentVoidHandler is an optional interface for documents that can be voided.
type DocumentVoidHandler interface {
	Void(c *gin.Context)
}

// DocumentDeleteHandler is an optional interface for documents that can be deleted.
type DocumentDeleteHandler interface {
	Delete(c *gin.Context)
}

// RegisterDocumentRoutes registers the standard routes for a document.
// Update, Void and Delete routes are registered when the handler implements them.
//
// Usage:
//
//	handler := handlers.NewBlendHandler(baseHandler, blendService)
//	RegisterDocumentRoutes(api.Group("/blends"), handler, history.For(blend.EntityName))
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler, history gin.HandlerFunc) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)

	if u, ok := handler.(DocumentUpdateHandler); ok {
		group.PUT("/:id", u.Update)
	}
	if v, ok := handler.(DocumentVoidHandler); ok {
		group.POST("/:id/void", v.Void)
	}
	if d, ok := handler.(DocumentDeleteHandler); ok {
		group.DELETE("/:id", d.Delete)
	}
	if history != nil {
		group.GET("/:id/history", history)
	}
}
