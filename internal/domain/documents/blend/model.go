// Package blend provides the blend document (Mezcla): vignettes combined into
// one batch that dispatches and threshing orders consume.
package blend

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
)

// EntityName is used in errors and the activity log.
const EntityName = "blend"

// Component is one vignette used by a blend.
type Component struct {
	VignetteID string          `json:"vignetteId"`
	RunID      string          `json:"runId"`
	Type       string          `json:"type"`
	Weight     decimal.Decimal `json:"weight"`
}

// Blend is a batch composed of vignettes.
type Blend struct {
	entity.BaseDocument
	ledger.BlendBalance

	Number     string      `json:"number"`
	Date       time.Time   `json:"date"`
	TypeLabel  string      `json:"typeLabel"`
	Components []Component `json:"components"`
}

// Consumption is what the blend takes from each vignette.
func (b *Blend) Consumption() reconcile.Consumption {
	c := reconcile.Consumption{}
	for _, comp := range b.Components {
		c.Add(reconcile.SourceRef{Kind: reconcile.KindVignette, ID: comp.VignetteID}, comp.Weight)
	}
	return c
}

// HasDispatches reports whether any weight left the blend.
func (b *Blend) HasDispatches() bool {
	return b.Dispatched.GreaterThan(calc.Epsilon)
}

// ComponentInput is one requested vignette and the weight to use.
type ComponentInput struct {
	VignetteID string          `json:"vignetteId"`
	Weight     decimal.Decimal `json:"weight"`
}

// Request is the form of a blend on create and edit.
type Request struct {
	Date       time.Time        `json:"date"`
	TypeLabel  string           `json:"typeLabel"`
	Components []ComponentInput `json:"components"`
}

// Validate checks the request shape before any store access.
func (r Request) Validate(_ context.Context) error {
	if strings.TrimSpace(r.TypeLabel) == "" {
		return apperror.NewValidation("blend type is required").WithDetail("field", "typeLabel")
	}
	if len(r.Components) == 0 {
		return apperror.NewValidation("at least one vignette is required").WithDetail("field", "components")
	}
	for i, c := range r.Components {
		if c.VignetteID == "" {
			return apperror.NewValidation("vignette is required").WithDetail("row", i)
		}
		if !c.Weight.IsPositive() {
			return apperror.NewValidation("weight must be positive").WithDetail("row", i)
		}
	}
	return nil
}

func (r Request) refs() []reconcile.SourceRef {
	refs := make([]reconcile.SourceRef, 0, len(r.Components))
	for _, c := range r.Components {
		refs = append(refs, reconcile.SourceRef{Kind: reconcile.KindVignette, ID: c.VignetteID})
	}
	return refs
}
