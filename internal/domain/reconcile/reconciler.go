package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/pkg/logger"
)

var tracer = otel.Tracer("coffeetrace/reconcile")

// MissingSourcePolicy decides what happens to a delta whose source no longer exists.
type MissingSourcePolicy string

const (
	// MissingSourceFail aborts the operation with SOURCE_NOT_FOUND before any write.
	MissingSourceFail MissingSourcePolicy = "fail"
	// MissingSourceSkip drops the delta, logs a warning and reports it in Result.Skipped.
	MissingSourceSkip MissingSourcePolicy = "skip"
)

// ParseMissingSourcePolicy parses a configuration value. Empty means fail.
func ParseMissingSourcePolicy(s string) (MissingSourcePolicy, error) {
	switch MissingSourcePolicy(s) {
	case "", MissingSourceFail:
		return MissingSourceFail, nil
	case MissingSourceSkip:
		return MissingSourceSkip, nil
	}
	return "", fmt.Errorf("unknown missing source policy %q", s)
}

// Reconciler applies consumption changes through the adapters of one settlement.
type Reconciler struct {
	adapters map[SourceKind]SourceAdapter
	policy   MissingSourcePolicy
}

// New creates a Reconciler. At most one adapter per kind; later ones replace earlier ones.
func New(policy MissingSourcePolicy, adapters ...SourceAdapter) *Reconciler {
	if policy == "" {
		policy = MissingSourceFail
	}
	r := &Reconciler{
		adapters: make(map[SourceKind]SourceAdapter, len(adapters)),
		policy:   policy,
	}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// Policy returns the configured missing source policy.
func (r *Reconciler) Policy() MissingSourcePolicy {
	return r.policy
}

// Supports reports whether the reconciler has an adapter for kind.
func (r *Reconciler) Supports(kind SourceKind) bool {
	_, ok := r.adapters[kind]
	return ok
}

// Snapshot holds the source balances read at the start of an operation.
type Snapshot struct {
	accounts map[SourceKind]map[string]Account
}

// Account returns the loaded account for ref.
func (s *Snapshot) Account(ref SourceRef) (Account, bool) {
	if s == nil {
		return nil, false
	}
	acc, ok := s.accounts[ref.Kind][ref.ID]
	return acc, ok
}

// Available returns the available balance of ref, zero when missing.
func (s *Snapshot) Available(ref SourceRef) decimal.Decimal {
	if acc, ok := s.Account(ref); ok {
		return acc.Available()
	}
	return decimal.Zero
}

// Snapshot reads every referenced source once.
func (r *Reconciler) Snapshot(ctx context.Context, refs ...SourceRef) (*Snapshot, error) {
	byKind := make(map[SourceKind][]string)
	seen := make(map[SourceRef]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	snap := &Snapshot{accounts: make(map[SourceKind]map[string]Account, len(byKind))}
	for kind, ids := range byKind {
		adapter, ok := r.adapters[kind]
		if !ok {
			return nil, apperror.NewValidation(fmt.Sprintf("source kind %s is not accepted here", kind)).
				WithDetail("kind", kind.String())
		}
		accounts, err := adapter.Load(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load %s sources: %w", kind, err)
		}
		snap.accounts[kind] = accounts
	}
	return snap, nil
}

// Plan is a checked set of deltas ready to be written.
type Plan struct {
	r       *Reconciler
	snap    *Snapshot
	Deltas  []Delta
	Skipped []Delta
}

// Empty reports whether executing the plan writes nothing.
func (p *Plan) Empty() bool {
	return len(p.Deltas) == 0
}

// Plan diffs original against updated and validates every delta against snap.
// It never writes; a failed plan leaves the store untouched.
func (r *Reconciler) Plan(ctx context.Context, snap *Snapshot, original, updated Consumption) (*Plan, error) {
	plan := &Plan{r: r, snap: snap}

	for _, delta := range Diff(original, updated) {
		acc, ok := snap.Account(delta.Ref)
		if !ok {
			if r.policy == MissingSourceSkip {
				logger.Warn(ctx, "reconcile: source missing, delta skipped",
					"source", delta.Ref.String(), "amount", delta.Amount.String())
				plan.Skipped = append(plan.Skipped, delta)
				continue
			}
			return nil, apperror.NewSourceNotFound(delta.Ref.Kind.String(), delta.Ref.ID).
				WithDetail("amount", delta.Amount.String())
		}

		if delta.Amount.IsPositive() && delta.Amount.GreaterThan(acc.Available().Add(calc.Epsilon)) {
			return nil, apperror.NewInsufficientStock(
				delta.Ref.String(),
				calc.Round2(delta.Amount).String(),
				calc.Round2(acc.Available()).String(),
			)
		}
		plan.Deltas = append(plan.Deltas, delta)
	}
	return plan, nil
}

// Result reports what Execute wrote and what the plan dropped.
type Result struct {
	Applied []Delta `json:"applied"`
	Skipped []Delta `json:"skipped,omitempty"`
}

// Execute writes the plan. Kinds are applied concurrently; a failure part way
// leaves earlier writes in place.
func (p *Plan) Execute(ctx context.Context) (Result, error) {
	res := Result{Skipped: p.Skipped}
	if p.Empty() {
		return res, nil
	}

	ctx, span := tracer.Start(ctx, "reconcile.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.Int("reconcile.deltas", len(p.Deltas)),
		attribute.Int("reconcile.skipped", len(p.Skipped)),
	)

	byKind := make(map[SourceKind][]Delta)
	for _, d := range p.Deltas {
		byKind[d.Ref.Kind] = append(byKind[d.Ref.Kind], d)
	}

	g, gctx := errgroup.WithContext(ctx)
	for kind, deltas := range byKind {
		adapter := p.r.adapters[kind]
		accounts := p.snap.accounts[kind]
		g.Go(func() error {
			if err := adapter.Apply(gctx, accounts, deltas); err != nil {
				return fmt.Errorf("apply %s deltas: %w", kind, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, apperror.Normalize(err)
	}

	for _, d := range p.Deltas {
		logger.Debug(ctx, "reconcile: delta applied", "source", d.Ref.String(), "amount", d.Amount.String())
	}
	res.Applied = p.Deltas
	return res, nil
}

// Reconcile snapshots the sources of both maps, plans and executes in one call.
func (r *Reconciler) Reconcile(ctx context.Context, original, updated Consumption) (Result, error) {
	refs := append(original.Refs(), updated.Refs()...)
	snap, err := r.Snapshot(ctx, refs...)
	if err != nil {
		return Result{}, err
	}
	plan, err := r.Plan(ctx, snap, original, updated)
	if err != nil {
		return Result{}, err
	}
	return plan.Execute(ctx)
}
