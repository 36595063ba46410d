// Package audit provides utilities for audit field enrichment in domain entities.
package audit

import (
	"context"

	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/core/entity"
)

// EnrichCreated sets CreatedBy and UpdatedBy from the context user.
// If no user is in context, this is a no-op.
func EnrichCreated(ctx context.Context, doc *entity.BaseDocument) {
	userID := appctx.GetUserID(ctx)
	if userID == "" || doc == nil {
		return
	}
	doc.CreatedBy = userID
	doc.UpdatedBy = userID
}

// EnrichUpdated touches the document and sets UpdatedBy from the context user.
func EnrichUpdated(ctx context.Context, doc *entity.BaseDocument) {
	if doc == nil {
		return
	}
	doc.Touch()
	if userID := appctx.GetUserID(ctx); userID != "" {
		doc.UpdatedBy = userID
	}
}
