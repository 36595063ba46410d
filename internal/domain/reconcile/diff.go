package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/domain/calc"
)

// Delta is a signed balance change against one source.
// Positive consumes from the source, negative releases back to it.
type Delta struct {
	Ref    SourceRef       `json:"ref"`
	Amount decimal.Decimal `json:"amount"`
}

// Diff returns updated - original for every source in either map,
// skipping changes below calc.NoOpThreshold. Output is sorted by ref.
func Diff(original, updated Consumption) []Delta {
	seen := make(map[SourceRef]struct{}, len(original)+len(updated))
	for ref := range original {
		seen[ref] = struct{}{}
	}
	for ref := range updated {
		seen[ref] = struct{}{}
	}

	deltas := make([]Delta, 0, len(seen))
	for ref := range seen {
		amount := updated.Get(ref).Sub(original.Get(ref))
		if amount.Abs().LessThan(calc.NoOpThreshold) {
			continue
		}
		deltas = append(deltas, Delta{Ref: ref, Amount: amount})
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Ref.less(deltas[j].Ref) })
	return deltas
}
