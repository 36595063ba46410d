// Package reconcile turns the difference between two consumption maps into
// balance deltas and applies them through per-kind source adapters.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SourceKind is the kind of inventory a transaction row consumes.
type SourceKind int

const (
	KindReceipt SourceKind = iota + 1
	KindVignette
	KindBlend
)

var kindNames = map[SourceKind]string{
	KindReceipt:  "receipt",
	KindVignette: "vignette",
	KindBlend:    "blend",
}

// String returns the wire name of the kind.
func (k SourceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseSourceKind accepts the wire names and their Spanish labels.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receipt", "recibo":
		return KindReceipt, nil
	case "vignette", "viñeta", "vineta":
		return KindVignette, nil
	case "blend", "mezcla":
		return KindBlend, nil
	}
	return 0, fmt.Errorf("unknown source kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid source kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SourceRef identifies one source record.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

func (r SourceRef) String() string {
	return r.Kind.String() + ":" + r.ID
}

func (r SourceRef) less(o SourceRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

// Consumption is the amount a transaction takes from each source.
type Consumption map[SourceRef]decimal.Decimal

// Add accumulates amount for ref. Rows consuming the same source are summed.
func (c Consumption) Add(ref SourceRef, amount decimal.Decimal) {
	c[ref] = c.Get(ref).Add(amount)
}

// Get returns the amount for ref, zero when absent.
func (c Consumption) Get(ref SourceRef) decimal.Decimal {
	if v, ok := c[ref]; ok {
		return v
	}
	return decimal.Zero
}

// Refs returns the refs sorted by kind then id.
func (c Consumption) Refs() []SourceRef {
	refs := make([]SourceRef, 0, len(c))
	for ref := range c {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].less(refs[j]) })
	return refs
}

// Account is the snapshot of one source as loaded by its adapter.
type Account interface {
	Available() decimal.Decimal
}

// SourceAdapter loads and updates the sources of one kind.
type SourceAdapter interface {
	Kind() SourceKind

	// Load reads the given sources. Missing ids are omitted from the result.
	Load(ctx context.Context, ids []string) (map[string]Account, error)

	// Apply writes deltas computed against accounts previously returned by Load.
	// Every delta targets an id present in accounts.
	Apply(ctx context.Context, accounts map[string]Account, deltas []Delta) error
}
