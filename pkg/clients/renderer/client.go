// Package renderer is the HTTP client of the external PDF rendering service.
package renderer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"coffeetrace/internal/config"
)

// Client exposes rendering operations used by the application.
type Client interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a renderer client using the provided configuration values.
func NewClient(cfg config.RendererConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &APIClient{httpClient: restyClient}
}

// RenderRequest is a finished settlement record to be laid out.
type RenderRequest struct {
	Template string `json:"template"`
	Number   string `json:"number"`
	Data     any    `json:"data"`
}

// RenderResponse identifies the produced document.
type RenderResponse struct {
	DocumentID string `json:"documentId"`
	URL        string `json:"url"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Render posts the record to /render.
func (c *APIClient) Render(ctx context.Context, req RenderRequest) (*RenderResponse, error) {
	result := new(RenderResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(apiErr).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.Template, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("renderer error: status=%d, code=%s, message=%s",
			resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Message)
	}

	return result, nil
}
