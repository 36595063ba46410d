// Package printout hands finished settlement records to the rendering collaborator.
package printout

import (
	"context"

	"coffeetrace/pkg/clients/renderer"
	"coffeetrace/pkg/logger"
)

// Printer renders a settlement record. Failures never undo the settlement.
type Printer interface {
	Print(ctx context.Context, template, number string, record any)
}

// Templates.
const (
	TemplateThreshing = "threshing_order"
	TemplateBlend     = "blend"
	TemplateDispatch  = "dispatch"
	TemplateReceipt   = "receipt"
)

// RendererPrinter prints through the renderer HTTP client.
type RendererPrinter struct {
	client renderer.Client
}

// NewRendererPrinter creates a Printer over client.
func NewRendererPrinter(client renderer.Client) *RendererPrinter {
	return &RendererPrinter{client: client}
}

// Print implements Printer. Errors are logged.
func (p *RendererPrinter) Print(ctx context.Context, template, number string, record any) {
	resp, err := p.client.Render(ctx, renderer.RenderRequest{Template: template, Number: number, Data: record})
	if err != nil {
		logger.Warn(ctx, "print failed", "template", template, "number", number, "error", err)
		return
	}
	logger.Info(ctx, "printed", "template", template, "number", number, "document_id", resp.DocumentID)
}

// Nop discards print requests.
type Nop struct{}

// Print implements Printer.
func (Nop) Print(context.Context, string, string, any) {}

var (
	_ Printer = (*RendererPrinter)(nil)
	_ Printer = Nop{}
)
