// Package yield provides yield-classification and reprocess runs (Rendimiento,
// Reproceso) and the vignettes they produce.
package yield

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/ledger"
)

// RunKind distinguishes the two parent documents of vignettes.
type RunKind string

const (
	RunYield     RunKind = "yield"
	RunReprocess RunKind = "reprocess"
)

// Collection returns the store collection of the run kind.
func (k RunKind) Collection() string {
	if k == RunReprocess {
		return CollectionReprocess
	}
	return CollectionYield
}

// ParseRunKind validates a run kind.
func ParseRunKind(s string) (RunKind, error) {
	switch RunKind(s) {
	case RunYield, RunReprocess:
		return RunKind(s), nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("unknown run kind %q", s)).WithDetail("field", "kind")
}

// Vignette is a tagged sub-lot owned by exactly one run.
type Vignette struct {
	ID             string               `json:"id"`
	Type           string               `json:"type"`
	Label          string               `json:"label,omitempty"`
	OriginalWeight decimal.Decimal      `json:"originalWeight"`
	NetWeight      decimal.Decimal      `json:"netWeight"`
	Status         ledger.VignetteState `json:"status"`
}

// Pickable reports whether the vignette can be selected for a blend.
func (v Vignette) Pickable() bool {
	return v.Status.Pickable() && v.NetWeight.GreaterThan(calc.Epsilon)
}

// Run is a yield or reprocess run and its embedded vignettes.
type Run struct {
	entity.BaseDocument

	Kind        RunKind    `json:"kind"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description,omitempty"`
	Vignettes   []Vignette `json:"vignettes"`
}

// VignetteIndex returns the position of a vignette in the run, -1 if absent.
func (r *Run) VignetteIndex(vignetteID string) int {
	for i := range r.Vignettes {
		if r.Vignettes[i].ID == vignetteID {
			return i
		}
	}
	return -1
}

// VignetteSpec describes one vignette produced by a run.
type VignetteSpec struct {
	Type   string          `json:"type"`
	Label  string          `json:"label,omitempty"`
	Weight decimal.Decimal `json:"weight"`
}

// CreateRunRequest is the form of a new run.
type CreateRunRequest struct {
	Kind        RunKind        `json:"kind"`
	Date        time.Time      `json:"date"`
	Description string         `json:"description,omitempty"`
	Vignettes   []VignetteSpec `json:"vignettes"`
}

// Validate checks the request before any id is assigned.
func (r CreateRunRequest) Validate(_ context.Context) error {
	if _, err := ParseRunKind(string(r.Kind)); err != nil {
		return err
	}
	if len(r.Vignettes) == 0 {
		return apperror.NewValidation("at least one vignette is required").WithDetail("field", "vignettes")
	}
	for i, v := range r.Vignettes {
		if strings.TrimSpace(v.Type) == "" {
			return apperror.NewValidation("vignette type is required").WithDetail("row", i)
		}
		if !v.Weight.GreaterThan(calc.Epsilon) {
			return apperror.NewValidation("vignette weight must be positive").WithDetail("row", i)
		}
	}
	return nil
}

// AvailableVignette is a pickable vignette with its parent reference.
type AvailableVignette struct {
	Vignette
	RunID   string  `json:"runId"`
	RunKind RunKind `json:"runKind"`
}
