package entity

import (
	"coffeetrace/internal/core/apperror"
)

// Status is the lifecycle state of a receipt or dispatch.
type Status string

const (
	StatusActive Status = "Activo"
	StatusVoided Status = "Anulado"
)

// IsVoided reports whether the status is terminal.
func (s Status) IsVoided() bool {
	return s == StatusVoided
}

// CanModify returns DOCUMENT_VOIDED when the document can no longer change.
func CanModify(entityName, docID string, s Status) error {
	if s.IsVoided() {
		return apperror.NewDocumentVoided(entityName, docID)
	}
	return nil
}
