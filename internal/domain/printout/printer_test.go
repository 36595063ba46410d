package printout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"coffeetrace/pkg/clients/renderer"
)

type recordingClient struct {
	calls []renderer.RenderRequest
	err   error
}

func (c *recordingClient) Render(_ context.Context, req renderer.RenderRequest) (*renderer.RenderResponse, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return nil, c.err
	}
	return &renderer.RenderResponse{DocumentID: "d1"}, nil
}

func TestRendererPrinter_ForwardsRecord(t *testing.T) {
	client := &recordingClient{}
	p := NewRendererPrinter(client)

	p.Print(context.Background(), TemplateBlend, "MZ-2026-00001", map[string]string{"k": "v"})
	if assert.Len(t, client.calls, 1) {
		assert.Equal(t, TemplateBlend, client.calls[0].Template)
		assert.Equal(t, "MZ-2026-00001", client.calls[0].Number)
	}
}

func TestRendererPrinter_SwallowsErrors(t *testing.T) {
	client := &recordingClient{err: errors.New("renderer down")}
	p := NewRendererPrinter(client)

	assert.NotPanics(t, func() {
		p.Print(context.Background(), TemplateDispatch, "SA-2026-00001", nil)
	})
	assert.Len(t, client.calls, 1)
}
