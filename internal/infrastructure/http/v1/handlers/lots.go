package handlers

import (
	"coffeetrace/internal/domain/documents/contract"
)

// LotHandler handles HTTP requests for contract lots.
type LotHandler struct {
	*BaseDocumentHandler[*contract.Lot, contract.CreateRequest]
}

// NewLotHandler creates a new contract lot handler.
func NewLotHandler(base *BaseHandler, service *contract.Service) *LotHandler {
	return &LotHandler{
		BaseDocumentHandler: NewBaseDocumentHandler[*contract.Lot, contract.CreateRequest](base, service),
	}
}
