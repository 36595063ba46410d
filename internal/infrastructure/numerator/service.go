// Package numerator implements core/numerator.Generator over the document store.
// Counters are kept in the "sequences" collection, one document per key.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"coffeetrace/internal/core/docstore"
	corenumerator "coffeetrace/internal/core/numerator"
)

// Collection holds the counter documents.
const Collection = "sequences"

type counter struct {
	ID      string `json:"id,omitempty"`
	Key     string `json:"key"`
	Current int64  `json:"current"`
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering backed by a docstore.Store.
type Service struct {
	counters *docstore.Collection[counter]

	// mu serialises counter read-modify-write within the process.
	mu sync.Mutex
	// ranges stores reserved ranges for each key (Cached strategy)
	ranges map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator over store.
func New(store docstore.Store) *Service {
	return &Service{
		counters: docstore.NewCollection[counter](store, Collection),
		ranges:   make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., TR-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := buildKey(cfg, period)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.nextCached(ctx, key, opts)
	default:
		num, err = s.bump(ctx, key, 1)
	}
	if err != nil {
		return "", err
	}
	return formatNumber(cfg, period, num), nil
}

// nextCached hands out numbers from memory, reserving a new range when exhausted.
func (s *Service) nextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}
		newMax, err := s.bump(ctx, key, size)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}
		// Range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// bump adds increment to the stored counter and returns the new value. Caller holds mu.
func (s *Service) bump(ctx context.Context, key string, increment int64) (int64, error) {
	c, err := s.load(ctx, key)
	if err != nil {
		return 0, err
	}
	if c == nil {
		c = &counter{Key: key, Current: increment}
		if err := s.counters.Insert(ctx, c); err != nil {
			return 0, fmt.Errorf("insert counter %s: %w", key, err)
		}
		return c.Current, nil
	}

	c.Current += increment
	if err := s.counters.UpdateFields(ctx, c.ID, map[string]any{"current": c.Current}); err != nil {
		return 0, fmt.Errorf("update counter %s: %w", key, err)
	}
	return c.Current, nil
}

func (s *Service) load(ctx context.Context, key string) (*counter, error) {
	found, err := s.counters.List(ctx, docstore.Where("key", key))
	if err != nil {
		return nil, fmt.Errorf("load counter %s: %w", key, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// SetNextNumber sets the last issued value, so the next number is value+1.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := buildKey(cfg, period)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Invalidate cache for this key if exists
	delete(s.ranges, key)

	c, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if c == nil {
		return s.counters.Insert(ctx, &counter{Key: key, Current: value})
	}
	return s.counters.UpdateFields(ctx, c.ID, map[string]any{"current": value})
}

// buildKey creates the sequence key based on config and period.
func buildKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// formatNumber creates the final number string.
func formatNumber(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric suffix of a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
