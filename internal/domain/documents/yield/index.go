package yield

import (
	"context"
	"sync"

	"coffeetrace/internal/core/docstore"
)

// Parent locates the run that owns a vignette.
type Parent struct {
	Kind  RunKind
	RunID string
}

// Index maps vignette ids to their parent run. It is rebuilt lazily after a run
// is inserted or removed; vignette membership never changes after creation.
type Index struct {
	repo Repository

	mu      sync.Mutex
	valid   bool
	parents map[string]Parent
}

// NewIndex creates an index and subscribes it to store changes.
func NewIndex(repo Repository, store docstore.Store) *Index {
	idx := &Index{repo: repo}
	store.Subscribe(idx.onChange)
	return idx
}

func (idx *Index) onChange(c docstore.Change) {
	if c.Collection != CollectionYield && c.Collection != CollectionReprocess {
		return
	}
	if c.Kind == docstore.ChangeUpdate {
		return
	}
	idx.Invalidate()
}

// Invalidate forces a rebuild on the next lookup.
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	idx.valid = false
	idx.mu.Unlock()
}

// Lookup returns the parents of the given vignettes. Unknown ids are omitted.
func (idx *Index) Lookup(ctx context.Context, vignetteIDs []string) (map[string]Parent, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.valid {
		if err := idx.rebuild(ctx); err != nil {
			return nil, err
		}
	}

	out := make(map[string]Parent, len(vignetteIDs))
	for _, vid := range vignetteIDs {
		if p, ok := idx.parents[vid]; ok {
			out[vid] = p
		}
	}
	return out, nil
}

func (idx *Index) rebuild(ctx context.Context) error {
	parents := make(map[string]Parent)
	for _, kind := range []RunKind{RunYield, RunReprocess} {
		runs, err := idx.repo.ListAll(ctx, kind)
		if err != nil {
			return err
		}
		for _, run := range runs {
			for _, v := range run.Vignettes {
				parents[v.ID] = Parent{Kind: kind, RunID: run.ID}
			}
		}
	}
	idx.parents = parents
	idx.valid = true
	return nil
}
