package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/config"
)

func TestRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		var req RenderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "blend", req.Template)
		assert.Equal(t, "MZ-2026-00001", req.Number)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documentId":"doc-1","url":"http://files/doc-1.pdf"}`))
	}))
	defer srv.Close()

	c := NewClient(config.RendererConfig{URL: srv.URL + "/"})
	resp, err := c.Render(context.Background(), RenderRequest{Template: "blend", Number: "MZ-2026-00001"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", resp.DocumentID)
}

func TestRender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_TEMPLATE","message":"unknown template"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.RendererConfig{URL: srv.URL})
	_, err := c.Render(context.Background(), RenderRequest{Template: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_TEMPLATE")
}
